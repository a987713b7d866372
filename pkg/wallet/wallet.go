package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet stores the managed account's secret key and public key.
type Wallet struct {
	sk *ecdsa.PrivateKey
	pk *ecdsa.PublicKey
}

// NewWallet creates a new wallet from a hex encoded private key. A leading 0x is accepted.
func NewWallet(sk string) (*Wallet, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(sk), "0x"))
	if err != nil {
		return &Wallet{}, fmt.Errorf("converting private key to ECDSA: %s", err)
	}

	return NewWalletFromKey(privateKey)
}

// NewWalletFromKey creates a new wallet from an already decoded private key.
func NewWalletFromKey(privateKey *ecdsa.PrivateKey) (*Wallet, error) {
	if privateKey == nil {
		return &Wallet{}, fmt.Errorf("private key is nil")
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return &Wallet{}, fmt.Errorf("casting public key to ECDSA")
	}

	return &Wallet{
		sk: privateKey,
		pk: publicKeyECDSA,
	}, nil
}

// Generate creates a wallet with a fresh random key.
func Generate() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return &Wallet{}, fmt.Errorf("generate key: %s", err)
	}
	return NewWalletFromKey(key)
}

// PrivateKey gets the private key.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.sk
}

// PrivateKeyHex returns the hex representation of the private key without the 0x prefix.
func (w *Wallet) PrivateKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSA(w.sk))
}

// Address returns the wallet address.
func (w *Wallet) Address() common.Address {
	return crypto.PubkeyToAddress(*w.pk)
}
