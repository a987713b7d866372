package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/textileio/go-autopay/pkg/identity"
)

// ErrNotFound indicates that the ledger doesn't know the transaction (yet).
var ErrNotFound = errors.New("transaction not found")

// RejectedError is returned when the ledger refused a submitted transaction.
type RejectedError struct {
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction rejected: %s", e.Reason)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// TransactionRequest is a value transfer of Amount tokens from From to To, submitted with Nonce.
type TransactionRequest struct {
	From    common.Address
	To      common.Address
	Amount  *big.Int
	Nonce   uint64
	ChainID *big.Int
}

// TransactionReceipt describes a transaction as observed on the ledger.
type TransactionReceipt struct {
	Hash        common.Hash
	Nonce       uint64
	Confirmed   bool
	Pending     bool
	Reverted    bool
	BlockNumber uint64
	Sender      common.Address

	// Set by the submitter from the request that produced the transaction.
	From   common.Address
	To     common.Address
	Amount *big.Int
}

// String returns a human readable description of the receipt.
func (r TransactionReceipt) String() string {
	status := "confirmed"
	switch {
	case !r.Confirmed:
		status = "unconfirmed"
	case r.Pending:
		status = "pending"
	case r.Reverted:
		status = "reverted"
	}
	amount := "0"
	if r.Amount != nil {
		amount = r.Amount.String()
	}
	return fmt.Sprintf(
		"Transaction{hash: %s, nonce: %d, block: %d, status: %s, from: %s, to: %s, amount: %s}",
		r.Hash.Hex(), r.Nonce, r.BlockNumber, status, r.From.Hex(), r.To.Hex(), amount)
}

// Client gives access to the ledger the managed account transacts on.
type Client interface {
	// SequenceNumber returns the next nonce the ledger expects from account.
	SequenceNumber(ctx context.Context, account common.Address) (uint64, error)

	// Submit signs the request with the identity and sends it. A refusal by the ledger is
	// reported as a *RejectedError, any other error is a transport failure.
	Submit(ctx context.Context, id identity.Identity, req TransactionRequest) (common.Hash, error)

	// Transaction looks up a transaction by hash. It returns ErrNotFound if the ledger doesn't know it.
	Transaction(ctx context.Context, hash common.Hash) (TransactionReceipt, error)
}
