package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"github.com/textileio/go-autopay/pkg/chains"
)

// dial connects to the gateway flag and checks it serves the chain flag.
func dial(ctx context.Context, cmd *cobra.Command) (*ethclient.Client, chains.Chain, error) {
	gateway, err := cmd.Flags().GetString("gateway")
	if err != nil {
		return nil, chains.Chain{}, errors.New("failed to parse gateway")
	}
	if gateway == "" {
		return nil, chains.Chain{}, errors.New("gateway can't be empty")
	}
	chainName, err := cmd.Flags().GetString("chain")
	if err != nil {
		return nil, chains.Chain{}, errors.New("failed to parse chain")
	}
	chain, err := chains.ByName(chainName)
	if err != nil {
		return nil, chains.Chain{}, err
	}

	conn, err := ethclient.DialContext(ctx, gateway)
	if err != nil {
		return nil, chains.Chain{}, fmt.Errorf("failed to connect to ethereum endpoint: %s", err)
	}
	chainID, err := conn.ChainID(ctx)
	if err != nil {
		conn.Close()
		return nil, chains.Chain{}, fmt.Errorf("get chain id: %s", err)
	}
	if chainID.Int64() != int64(chain.ID) {
		conn.Close()
		return nil, chains.Chain{}, fmt.Errorf("gateway serves chain %d, expected %d", chainID.Int64(), chain.ID)
	}
	return conn, chain, nil
}
