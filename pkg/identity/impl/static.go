package impl

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/textileio/go-autopay/pkg/identity"
	"github.com/textileio/go-autopay/pkg/wallet"
)

// StaticProvider serves an identity backed by an in-memory wallet.
type StaticProvider struct {
	wallet  *wallet.Wallet
	chainID *big.Int
}

var _ identity.Provider = (*StaticProvider)(nil)

// NewStaticProvider creates a provider that signs with the wallet key for the given chain.
func NewStaticProvider(w *wallet.Wallet, chainID *big.Int) *StaticProvider {
	return &StaticProvider{
		wallet:  w,
		chainID: new(big.Int).Set(chainID),
	}
}

// Identity implements identity.Provider.
func (p *StaticProvider) Identity(_ context.Context) (identity.Identity, error) {
	if p.wallet == nil || p.wallet.PrivateKey() == nil {
		return identity.Identity{}, fmt.Errorf("no wallet configured: %w", identity.ErrIdentityUnavailable)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(p.wallet.PrivateKey(), p.chainID)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("creating keyed transactor: %s: %w", err, identity.ErrIdentityUnavailable)
	}

	return identity.Identity{
		Address: auth.From,
		Signer:  auth.Signer,
	}, nil
}
