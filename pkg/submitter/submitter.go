package submitter

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/pkg/identity"
	"github.com/textileio/go-autopay/pkg/ledger"
	"github.com/textileio/go-autopay/pkg/nonce"
)

// Config holds the fixed parameters of every transfer.
type Config struct {
	// Source is the account tokens are pulled from.
	Source common.Address
	// Destination receives the tokens. The zero address means the managed address itself.
	Destination common.Address
	// ChainID is the chain transactions are signed for.
	ChainID *big.Int
}

// Submitter signs, submits and confirms transfers for the managed account.
//
// It performs at most one submission and one lookup per call and never retries. Callers must
// not call Submit concurrently.
type Submitter struct {
	log        zerolog.Logger
	identities identity.Provider
	cache      nonce.NonceCache
	ledger     ledger.Client
	config     Config
}

// New creates a new Submitter.
func New(identities identity.Provider, cache nonce.NonceCache, client ledger.Client, config Config) *Submitter {
	return &Submitter{
		log:        logger.With().Str("component", "submitter").Logger(),
		identities: identities,
		cache:      cache,
		ledger:     client,
		config:     config,
	}
}

// Address returns the managed address.
func (s *Submitter) Address(ctx context.Context) (common.Address, error) {
	id, err := s.identities.Identity(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrIdentityUnavailable, err)
	}
	return id.Address, nil
}

// Submit transfers amount tokens. The nonce cache only advances when the transaction is confirmed,
// and is invalidated when the ledger doesn't take the transaction. A confirmed but reverted
// transaction advances the cache and returns a TransactionRevertedError.
func (s *Submitter) Submit(ctx context.Context, amount *big.Int) (ledger.TransactionReceipt, error) {
	id, err := s.identities.Identity(ctx)
	if err != nil {
		return ledger.TransactionReceipt{}, fmt.Errorf("%w: %s", ErrIdentityUnavailable, err)
	}

	n, err := s.cache.ReserveNext(ctx, id.Address)
	if err != nil {
		return ledger.TransactionReceipt{}, fmt.Errorf("%w: %s", ErrSequenceLookupFailed, err)
	}

	req := ledger.TransactionRequest{
		From:    s.config.Source,
		To:      s.destination(id.Address),
		Amount:  new(big.Int).Set(amount),
		Nonce:   n,
		ChainID: s.config.ChainID,
	}
	log := s.log.With().
		Str("address", id.Address.Hex()).
		Uint64("nonce", n).
		Logger()

	hash, err := s.ledger.Submit(ctx, id, req)
	if err != nil {
		s.cache.Invalidate()

		var rejected *ledger.RejectedError
		if errors.As(err, &rejected) {
			log.Warn().Str("reason", rejected.Reason).Msg("submission rejected")
			return ledger.TransactionReceipt{}, &SubmissionRejectedError{Reason: rejected.Reason, Nonce: n}
		}
		log.Error().Err(err).Msg("submission failed")
		return ledger.TransactionReceipt{}, fmt.Errorf("%w (nonce %d): %s", ErrSubmissionFailed, n, err)
	}

	receipt, err := s.ledger.Transaction(ctx, hash)
	if err != nil {
		detail := fmt.Errorf("%w: %s", ErrLookupFailed, err)
		if errors.Is(err, ledger.ErrNotFound) {
			detail = ErrTransactionPending
		}
		log.Warn().Err(err).Str("hash", hash.Hex()).Msg("transaction confirmation unavailable")
		return ledger.TransactionReceipt{}, &ConfirmationUnavailableError{Hash: hash, Nonce: n, Err: detail}
	}
	if !receipt.Confirmed {
		log.Warn().Str("hash", hash.Hex()).Msg("transaction not confirmed yet")
		return ledger.TransactionReceipt{}, &ConfirmationUnavailableError{Hash: hash, Nonce: n, Err: ErrTransactionPending}
	}

	s.cache.Confirm(id.Address, receipt.Nonce)
	if receipt.Reverted {
		log.Error().Str("hash", hash.Hex()).Msg("transfer reverted")
		return ledger.TransactionReceipt{}, &TransactionRevertedError{Hash: hash, Nonce: receipt.Nonce}
	}
	receipt.From, receipt.To, receipt.Amount = req.From, req.To, req.Amount
	log.Info().
		Str("hash", hash.Hex()).
		Bool("pending", receipt.Pending).
		Uint64("block", receipt.BlockNumber).
		Msg("transfer confirmed")

	return receipt, nil
}

// Reconcile looks up a transaction that previously ended with ErrConfirmationUnavailable and
// confirms its nonce if the ledger now reports it as included. It performs a single lookup.
func (s *Submitter) Reconcile(ctx context.Context, hash common.Hash) (ledger.TransactionReceipt, error) {
	id, err := s.identities.Identity(ctx)
	if err != nil {
		return ledger.TransactionReceipt{}, fmt.Errorf("%w: %s", ErrIdentityUnavailable, err)
	}

	receipt, err := s.ledger.Transaction(ctx, hash)
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.TransactionReceipt{}, &ConfirmationUnavailableError{Hash: hash, Err: ErrTransactionPending}
	}
	if err != nil {
		return ledger.TransactionReceipt{}, &ConfirmationUnavailableError{
			Hash: hash,
			Err:  fmt.Errorf("%w: %s", ErrLookupFailed, err),
		}
	}
	if receipt.Sender != id.Address {
		return ledger.TransactionReceipt{}, fmt.Errorf(
			"transaction %s was sent by %s, not by %s", hash.Hex(), receipt.Sender.Hex(), id.Address.Hex())
	}
	if !receipt.Confirmed {
		return ledger.TransactionReceipt{}, &ConfirmationUnavailableError{
			Hash:  hash,
			Nonce: receipt.Nonce,
			Err:   ErrTransactionPending,
		}
	}

	s.cache.Confirm(id.Address, receipt.Nonce)
	if receipt.Reverted {
		return ledger.TransactionReceipt{}, &TransactionRevertedError{Hash: hash, Nonce: receipt.Nonce}
	}
	s.log.Info().
		Str("hash", hash.Hex()).
		Uint64("nonce", receipt.Nonce).
		Msg("transaction reconciled")

	return receipt, nil
}

// NonceState returns the cached nonce state.
func (s *Submitter) NonceState() nonce.State {
	return s.cache.PeekNext()
}

func (s *Submitter) destination(managed common.Address) common.Address {
	if s.config.Destination == (common.Address{}) {
		return managed
	}
	return s.config.Destination
}
