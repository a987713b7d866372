package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/textileio/go-autopay/pkg/wallet"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Offers wallet utilites",
	Long:  `Offers wallet utilites`,
	Args:  cobra.ExactArgs(1),
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates an ETH wallet",
	Long:  `Creates an ETH wallet`,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, err := cmd.Flags().GetString("filename")
		if err != nil {
			return errors.New("failed to parse filename")
		}
		w, err := wallet.Generate()
		if err != nil {
			return fmt.Errorf("generate wallet: %s", err)
		}

		if err := os.WriteFile(filename, []byte(w.PrivateKeyHex()), 0o600); err != nil {
			return fmt.Errorf("writing to file %s: %s", filename, err)
		}

		fmt.Printf("Wallet address %s created\n", w.Address())
		fmt.Printf("Private key saved in %s\n", filename)

		return nil
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Returns address of ETH wallet",
	Long:  `Returns address of ETH wallet`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.NewWallet(args[0])
		if err != nil {
			return fmt.Errorf("decode key: %s", err)
		}

		fmt.Printf("Wallet address %s\n", w.Address())

		return nil
	},
}
