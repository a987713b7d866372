package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/textileio/go-autopay/pkg/ledger/impl/ethereum"
)

var nonceCmd = &cobra.Command{
	Use:   "nonce <address>",
	Short: "Returns the next sequence number of an account",
	Long:  `Returns the next sequence number of an account, counting transactions pending in the node`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid address: %s", args[0])
		}
		ctx := cmd.Context()
		conn, chain, err := dial(ctx, cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		client, err := ethereum.NewClient(conn, chain.Token, ethereum.DefaultConfig)
		if err != nil {
			return fmt.Errorf("creating ledger client: %s", err)
		}
		nonce, err := client.SequenceNumber(ctx, common.HexToAddress(args[0]))
		if err != nil {
			return fmt.Errorf("get sequence number: %s", err)
		}

		fmt.Printf("Next nonce of %s on %s is %d\n", common.HexToAddress(args[0]), chain.Name, nonce)

		return nil
	},
}
