package main

import (
	"github.com/spf13/cobra"
)

var cliName = "toolkit"

var rootCmd = &cobra.Command{
	Use:   cliName,
	Short: "toolkit is CLI for autopay operators",
	Long:  `toolkit is CLI for autopay operators executing mundane tasks`,
	Args:  cobra.ExactArgs(0),
}

func main() {
	rootCmd.Execute() //nolint
}

func init() {
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(keystoreCmd)
	rootCmd.AddCommand(nonceCmd)
	rootCmd.AddCommand(transferCmd)

	walletCreateCmd.Flags().String("filename", "privatekey.hex", "Filename to store hex representation of private key")
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletAddressCmd)

	keystoreImportCmd.Flags().String("filename", "keystore.json", "Filename of the encrypted keystore")
	keystoreImportCmd.Flags().String("passphrase", "", "passphrase used to encrypt the key")
	keystoreCmd.AddCommand(keystoreImportCmd)

	for _, cmd := range []*cobra.Command{nonceCmd, transferCmd} {
		cmd.PersistentFlags().String("gateway", "", "URL of an Ethereum node API (i.e: Alchemy/Infura)")
		cmd.PersistentFlags().String("chain", "sepolia", "chain name")
	}

	transferCmd.Flags().String("privatekey", "", "the private key of the managed account")
	transferCmd.Flags().String("token", "", "token contract address, the chain USDC contract when empty")
	transferCmd.Flags().String("source", "0x63A0bfd6a5cdCF446ae12135E2CD86b908659563", "account the tokens are pulled from")
	transferCmd.Flags().String("destination", "", "recipient, the managed account when empty")
	transferCmd.Flags().String("amount", "1", "amount in token base units")
}
