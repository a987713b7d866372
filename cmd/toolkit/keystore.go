package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	identityimpl "github.com/textileio/go-autopay/pkg/identity/impl"
	"github.com/textileio/go-autopay/pkg/wallet"
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "Offers keystore utilities",
	Long:  `Offers keystore utilities`,
	Args:  cobra.ExactArgs(1),
}

var keystoreImportCmd = &cobra.Command{
	Use:   "import <privatekey>",
	Short: "Encrypts a private key into a keystore file",
	Long:  `Encrypts a hex encoded private key into a keystore file the daemon can load`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, err := cmd.Flags().GetString("filename")
		if err != nil {
			return errors.New("failed to parse filename")
		}
		passphrase, err := cmd.Flags().GetString("passphrase")
		if err != nil {
			return errors.New("failed to parse passphrase")
		}
		if passphrase == "" {
			return errors.New("passphrase can't be empty")
		}
		w, err := wallet.NewWallet(args[0])
		if err != nil {
			return fmt.Errorf("decode key: %s", err)
		}
		if err := identityimpl.WriteKeystore(filename, w, passphrase); err != nil {
			return fmt.Errorf("write keystore: %s", err)
		}

		fmt.Printf("Keystore for %s saved in %s\n", w.Address(), filename)

		return nil
	},
}
