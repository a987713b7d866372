package autopay

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransferNotDue is returned by TransferPeriodically when the interval since the last
// transfer hasn't elapsed.
var ErrTransferNotDue = errors.New("Transfer not yet due.") //nolint:stylecheck

// ErrInvalidHash indicates that a transaction hash couldn't be parsed.
var ErrInvalidHash = errors.New("invalid transaction hash")

// ErrTransferNotRecorded indicates that a periodic transfer was confirmed but its time couldn't be
// persisted.
var ErrTransferNotRecorded = errors.New("transfer confirmed but not recorded")

// TransferNotRecordedError carries the confirmed transfer whose time couldn't be persisted.
type TransferNotRecordedError struct {
	Hash        string
	Transaction string
	Err         error
}

func (e *TransferNotRecordedError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrTransferNotRecorded, e.Transaction, e.Err)
}

// Is reports whether target is ErrTransferNotRecorded.
func (e *TransferNotRecordedError) Is(target error) bool {
	return target == ErrTransferNotRecorded
}

func (e *TransferNotRecordedError) Unwrap() error {
	return e.Err
}

// Status describes the state of the managed account.
type Status struct {
	Address          string `json:"address"`
	NextNonce        uint64 `json:"next_nonce"`
	NonceKnown       bool   `json:"nonce_known"`
	LastTransferTime uint64 `json:"last_transfer_time"`
	NextDueTime      uint64 `json:"next_due_time"`
	Interval         uint64 `json:"interval"`
	Amount           string `json:"amount"`
}

// AutoPay defines the operations exposed for the managed account.
type AutoPay interface {
	// Address returns the managed address as 0x-prefixed hex.
	Address(context.Context) (string, error)
	// Transfer performs one unconditional transfer of the configured amount.
	Transfer(context.Context) (string, error)
	// TransferPeriodically performs a transfer only if the configured interval elapsed.
	TransferPeriodically(context.Context) (string, error)
	// Reconcile checks again a transaction whose confirmation was unavailable.
	Reconcile(ctx context.Context, hash string) (string, error)
	Status(context.Context) (Status, error)
}
