package impl

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/internal/autopay"
	"github.com/textileio/go-autopay/pkg/gate"
	"github.com/textileio/go-autopay/pkg/submitter"
	"golang.org/x/sync/semaphore"
)

// Service is the main implementation of autopay.AutoPay. Transfers and reconciliations of the
// managed account are serialized.
type Service struct {
	log       zerolog.Logger
	submitter *submitter.Submitter
	gate      *gate.PeriodicGate
	amount    *big.Int
	now       func() time.Time

	sem *semaphore.Weighted
}

var _ autopay.AutoPay = (*Service)(nil)

// Option modifies a Service.
type Option func(*Service)

// WithClock sets the clock used to evaluate the periodic gate.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service that transfers amount tokens per call.
func NewService(sub *submitter.Submitter, g *gate.PeriodicGate, amount *big.Int, opts ...Option) (*Service, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive: %v", amount)
	}
	s := &Service{
		log:       logger.With().Str("component", "autopay").Logger(),
		submitter: sub,
		gate:      g,
		amount:    new(big.Int).Set(amount),
		now:       time.Now,
		sem:       semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Address returns the managed address.
func (s *Service) Address(ctx context.Context) (string, error) {
	addr, err := s.submitter.Address(ctx)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// Transfer submits a transfer of the configured amount and waits for a single confirmation lookup.
func (s *Service) Transfer(ctx context.Context) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for in-flight operation: %w", err)
	}
	defer s.sem.Release(1)

	receipt, err := s.submitter.Submit(ctx, s.amount)
	if err != nil {
		return "", err
	}
	return receipt.String(), nil
}

// TransferPeriodically evaluates the periodic gate at the current time.
func (s *Service) TransferPeriodically(ctx context.Context) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for in-flight operation: %w", err)
	}
	defer s.sem.Release(1)

	now := s.now().Unix()
	if now < 0 {
		now = 0
	}
	receipt, err := s.gate.CheckAndMaybeTransfer(ctx, uint64(now), s.amount)
	if errors.Is(err, gate.ErrNotDue) {
		return "", autopay.ErrTransferNotDue
	}
	if errors.Is(err, gate.ErrStateSave) {
		return "", &autopay.TransferNotRecordedError{
			Hash:        receipt.Hash.Hex(),
			Transaction: receipt.String(),
			Err:         err,
		}
	}
	if err != nil {
		return "", err
	}
	return receipt.String(), nil
}

// Reconcile looks up a previously submitted transaction by its hex hash.
func (s *Service) Reconcile(ctx context.Context, hash string) (string, error) {
	b, err := hexutil.Decode(hash)
	if err != nil || len(b) != common.HashLength {
		return "", fmt.Errorf("%w: %q", autopay.ErrInvalidHash, hash)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for in-flight operation: %w", err)
	}
	defer s.sem.Release(1)

	receipt, err := s.submitter.Reconcile(ctx, common.BytesToHash(b))
	if err != nil {
		return "", err
	}
	return receipt.String(), nil
}

// Status returns the cached nonce and the periodic transfer schedule.
func (s *Service) Status(ctx context.Context) (autopay.Status, error) {
	addr, err := s.submitter.Address(ctx)
	if err != nil {
		return autopay.Status{}, err
	}
	nonce := s.submitter.NonceState()
	state := s.gate.State(ctx)

	status := autopay.Status{
		Address:          addr.Hex(),
		LastTransferTime: state.LastTransferTime,
		NextDueTime:      s.gate.NextDue(state),
		Interval:         s.gate.Interval(),
		Amount:           s.amount.String(),
	}
	if nonce.Known && nonce.Address == addr {
		status.NextNonce = nonce.Value
		status.NonceKnown = true
	}
	return status, nil
}
