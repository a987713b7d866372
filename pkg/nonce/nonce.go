package nonce

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrSequenceLookup indicates that the ledger could not report the account sequence number.
var ErrSequenceLookup = errors.New("sequence number lookup failed")

// State is the cached next nonce for the managed address.
// When Known is false the next nonce must be queried from the ledger.
type State struct {
	Address common.Address
	Value   uint64
	Known   bool
}

// SequenceReader provides the account sequence number known by the ledger.
type SequenceReader interface {
	SequenceNumber(ctx context.Context, account common.Address) (uint64, error)
}

// NonceCache keeps the next nonce to be used by the managed address.
//
// The cache never advances on its own: a reserved nonce stays the next one until Confirm
// is called with it, so the cache can't drift ahead of what the ledger has accepted.
type NonceCache interface {
	// PeekNext returns the cached state without touching the ledger.
	PeekNext() State

	// ReserveNext returns the nonce to use for the next transaction of addr. If the cache is empty,
	// or holds a value for a different address, the ledger is queried.
	ReserveNext(ctx context.Context, addr common.Address) (uint64, error)

	// Confirm records that a transaction with the given nonce was included, so the next one is nonce+1.
	Confirm(addr common.Address, nonce uint64)

	// Invalidate forgets the cached value so the next reservation re-queries the ledger.
	Invalidate()
}
