package submitter

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrIdentityUnavailable indicates that the signing identity could not be obtained.
	ErrIdentityUnavailable = errors.New("identity unavailable")

	// ErrSequenceLookupFailed indicates that the nonce cache was empty and the ledger couldn't report it.
	ErrSequenceLookupFailed = errors.New("sequence number lookup failed")

	// ErrSubmissionRejected indicates that the ledger refused the transaction.
	ErrSubmissionRejected = errors.New("submission rejected")

	// ErrSubmissionFailed indicates that the transaction couldn't be delivered to the ledger.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrConfirmationUnavailable indicates that the transaction was accepted but its inclusion
	// couldn't be observed.
	ErrConfirmationUnavailable = errors.New("confirmation unavailable")

	// ErrTransactionPending is the ErrConfirmationUnavailable detail for a transaction the
	// ledger doesn't report as included yet.
	ErrTransactionPending = errors.New("transaction not yet observable")

	// ErrTransactionReverted indicates that the transaction was included but its execution failed.
	// Its nonce is consumed.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrLookupFailed is the ErrConfirmationUnavailable detail for a failed ledger lookup.
	ErrLookupFailed = errors.New("transaction lookup failed")
)

// SubmissionRejectedError carries the reason the ledger gave for refusing a transaction.
type SubmissionRejectedError struct {
	Reason string
	Nonce  uint64
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("%s (nonce %d): %s", ErrSubmissionRejected, e.Nonce, e.Reason)
}

// Is makes errors.Is(err, ErrSubmissionRejected) hold.
func (e *SubmissionRejectedError) Is(target error) bool {
	return target == ErrSubmissionRejected
}

// ConfirmationUnavailableError is returned for an accepted transaction whose inclusion
// couldn't be confirmed. Hash can be used to reconcile it later.
type ConfirmationUnavailableError struct {
	Hash  common.Hash
	Nonce uint64
	Err   error
}

func (e *ConfirmationUnavailableError) Error() string {
	return fmt.Sprintf("%s for %s (nonce %d): %s", ErrConfirmationUnavailable, e.Hash.Hex(), e.Nonce, e.Err)
}

// Is makes errors.Is(err, ErrConfirmationUnavailable) hold.
func (e *ConfirmationUnavailableError) Is(target error) bool {
	return target == ErrConfirmationUnavailable
}

func (e *ConfirmationUnavailableError) Unwrap() error {
	return e.Err
}

// TransactionRevertedError is returned for an included transaction whose execution failed.
type TransactionRevertedError struct {
	Hash  common.Hash
	Nonce uint64
}

func (e *TransactionRevertedError) Error() string {
	return fmt.Sprintf("%s: %s (nonce %d)", ErrTransactionReverted, e.Hash.Hex(), e.Nonce)
}

// Is makes errors.Is(err, ErrTransactionReverted) hold.
func (e *TransactionRevertedError) Is(target error) bool {
	return target == ErrTransactionReverted
}
