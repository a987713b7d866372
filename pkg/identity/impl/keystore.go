package impl

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/pkg/identity"
	"github.com/textileio/go-autopay/pkg/wallet"
)

// KeystoreProvider serves an identity stored in an encrypted JSON keystore file.
// The file is decrypted on first use; a failed attempt is retried on the next call.
type KeystoreProvider struct {
	path       string
	passphrase string
	chainID    *big.Int
	log        zerolog.Logger

	mu     sync.Mutex
	static *StaticProvider
}

var _ identity.Provider = (*KeystoreProvider)(nil)

// NewKeystoreProvider creates a provider for the keystore file at path.
func NewKeystoreProvider(path, passphrase string, chainID *big.Int) *KeystoreProvider {
	return &KeystoreProvider{
		path:       path,
		passphrase: passphrase,
		chainID:    new(big.Int).Set(chainID),
		log:        logger.With().Str("component", "keystore").Logger(),
	}
}

// Identity implements identity.Provider.
func (p *KeystoreProvider) Identity(ctx context.Context) (identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.static == nil {
		w, err := p.load()
		if err != nil {
			return identity.Identity{}, fmt.Errorf("loading keystore %s: %s: %w", p.path, err, identity.ErrIdentityUnavailable)
		}
		p.static = NewStaticProvider(w, p.chainID)
		p.log.Info().Str("address", w.Address().Hex()).Msg("keystore unlocked")
	}

	return p.static.Identity(ctx)
}

func (p *KeystoreProvider) load() (*wallet.Wallet, error) {
	keyJSON, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %s", err)
	}
	key, err := keystore.DecryptKey(keyJSON, p.passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypting key: %s", err)
	}
	return wallet.NewWalletFromKey(key.PrivateKey)
}

// WriteKeystore encrypts the wallet key into a keystore file at path using light scrypt parameters.
func WriteKeystore(path string, w *wallet.Wallet, passphrase string) error {
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    w.Address(),
		PrivateKey: w.PrivateKey(),
	}
	keyJSON, err := keystore.EncryptKey(key, passphrase, keystore.LightScryptN, keystore.LightScryptP)
	if err != nil {
		return fmt.Errorf("encrypting key: %s", err)
	}
	if err := os.WriteFile(path, keyJSON, 0o600); err != nil {
		return fmt.Errorf("writing keystore file: %s", err)
	}
	return nil
}
