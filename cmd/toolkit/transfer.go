package main

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	internalchains "github.com/textileio/go-autopay/internal/chains"
	identityimpl "github.com/textileio/go-autopay/pkg/identity/impl"
	"github.com/textileio/go-autopay/pkg/ledger/impl/ethereum"
	"github.com/textileio/go-autopay/pkg/wallet"
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Executes a single token transfer",
	Long:  `Executes a single transferFrom of the token, ignoring any periodic schedule`,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		privateKey, err := flags.GetString("privatekey")
		if err != nil {
			return errors.New("failed to parse privatekey")
		}
		w, err := wallet.NewWallet(privateKey)
		if err != nil {
			return fmt.Errorf("unable to create wallet from private key string: %s", err)
		}

		addrs := map[string]common.Address{}
		for _, name := range []string{"token", "source", "destination"} {
			value, err := flags.GetString(name)
			if err != nil {
				return fmt.Errorf("failed to parse %s", name)
			}
			if value == "" {
				continue
			}
			if !common.IsHexAddress(value) {
				return fmt.Errorf("%s is not a valid address: %s", name, value)
			}
			addrs[name] = common.HexToAddress(value)
		}

		amountStr, err := flags.GetString("amount")
		if err != nil {
			return errors.New("failed to parse amount")
		}
		amount, ok := new(big.Int).SetString(amountStr, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("amount must be a positive integer: %s", amountStr)
		}

		conn, chain, err := dial(ctx, cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		token, ok := addrs["token"]
		if !ok {
			token = chain.Token
		}
		if token == (common.Address{}) {
			return fmt.Errorf("chain %s has no token contract, use --token", chain.Name)
		}

		stack, err := internalchains.NewChainStack(ctx, internalchains.Config{
			ChainID:     int64(chain.ID),
			Backend:     conn,
			Token:       token,
			Ledger:      ethereum.DefaultConfig,
			Identities:  identityimpl.NewStaticProvider(w, big.NewInt(int64(chain.ID))),
			Source:      addrs["source"],
			Destination: addrs["destination"],
			Amount:      amount,
			Interval:    0,
			State:       internalchains.StateConfig{Backend: internalchains.StateBackendMemory},
		})
		if err != nil {
			return fmt.Errorf("creating chain stack: %s", err)
		}
		defer func() { _ = stack.Close(ctx) }()

		desc, err := stack.Service.Transfer(ctx)
		if err != nil {
			return fmt.Errorf("transfer: %s", err)
		}

		fmt.Println(desc)

		return nil
	},
}
