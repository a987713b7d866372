package identity

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ErrIdentityUnavailable indicates that the signing identity could not be obtained.
var ErrIdentityUnavailable = errors.New("signing identity unavailable")

// Identity is a signing handle together with the address it signs for.
type Identity struct {
	Address common.Address
	Signer  bind.SignerFn
}

// Provider produces the signing identity of the managed account.
type Provider interface {
	// Identity returns the signing identity. Implementations wrap ErrIdentityUnavailable on failure.
	Identity(context.Context) (Identity, error)
}
