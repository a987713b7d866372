package gate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/pkg/ledger"
)

// DefaultInterval is the minimum time between two periodic transfers.
const DefaultInterval = 24 * time.Hour

var (
	// ErrNotDue indicates that the interval since the last transfer hasn't elapsed yet.
	ErrNotDue = errors.New("transfer not yet due")

	// ErrStateLoad indicates that the persisted state couldn't be read, so no transfer was attempted.
	ErrStateLoad = errors.New("loading subscription state")

	// ErrStateSave indicates that a transfer was confirmed but its time couldn't be persisted.
	ErrStateSave = errors.New("saving subscription state")
)

// SubscriptionState is the persisted state of the recurring transfer.
type SubscriptionState struct {
	// LastTransferTime is the unix time in seconds of the last successful transfer. Zero means never.
	LastTransferTime uint64
}

// StateStore persists the SubscriptionState.
type StateStore interface {
	// Load returns the stored state. A missing record is the zero state.
	Load(context.Context) (SubscriptionState, error)
	Save(context.Context, SubscriptionState) error
}

// Submitter performs a single transfer attempt.
type Submitter interface {
	Submit(ctx context.Context, amount *big.Int) (ledger.TransactionReceipt, error)
}

// PeriodicGate lets a transfer through at most once per interval.
type PeriodicGate struct {
	log       zerolog.Logger
	submitter Submitter
	store     StateStore
	interval  uint64
}

// NewPeriodicGate creates a new gate. The interval is truncated to whole seconds.
func NewPeriodicGate(submitter Submitter, store StateStore, interval time.Duration) (*PeriodicGate, error) {
	if interval < 0 {
		return nil, fmt.Errorf("interval can't be negative: %s", interval)
	}
	return &PeriodicGate{
		log:       logger.With().Str("component", "gate").Logger(),
		submitter: submitter,
		store:     store,
		interval:  uint64(interval / time.Second),
	}, nil
}

// Interval returns the configured interval in seconds.
func (g *PeriodicGate) Interval() uint64 {
	return g.interval
}

// CheckAndMaybeTransfer submits a transfer of amount if the interval elapsed at now (unix seconds).
// It returns ErrNotDue otherwise, and ErrStateLoad without submitting if the state can't be read.
// The last transfer time is only updated after a confirmed transfer; submission errors are returned
// as they come from the submitter.
func (g *PeriodicGate) CheckAndMaybeTransfer(
	ctx context.Context,
	now uint64,
	amount *big.Int,
) (ledger.TransactionReceipt, error) {
	state, err := g.store.Load(ctx)
	if err != nil {
		g.log.Error().Err(err).Uint64("now", now).Msg("loading subscription state, skipping check")
		return ledger.TransactionReceipt{}, fmt.Errorf("%w: %s", ErrStateLoad, err)
	}
	if !g.isDue(state, now) {
		g.log.Debug().
			Uint64("now", now).
			Uint64("last_transfer_time", state.LastTransferTime).
			Uint64("interval", g.interval).
			Msg("transfer not due")
		return ledger.TransactionReceipt{}, ErrNotDue
	}

	receipt, err := g.submitter.Submit(ctx, amount)
	if err != nil {
		return ledger.TransactionReceipt{}, err
	}

	if err := g.store.Save(ctx, SubscriptionState{LastTransferTime: now}); err != nil {
		g.log.Error().
			Err(err).
			Str("hash", receipt.Hash.Hex()).
			Uint64("now", now).
			Msg("transfer confirmed but state couldn't be saved")
		return receipt, fmt.Errorf("%w: %s", ErrStateSave, err)
	}
	g.log.Info().
		Str("hash", receipt.Hash.Hex()).
		Uint64("last_transfer_time", now).
		Msg("periodic transfer executed")

	return receipt, nil
}

// State returns the persisted state for reporting. A load failure is logged and reported as the
// zero state; it never drives a transfer.
func (g *PeriodicGate) State(ctx context.Context) SubscriptionState {
	state, err := g.store.Load(ctx)
	if err != nil {
		g.log.Error().Err(err).Msg("loading subscription state, assuming no previous transfer")
		return SubscriptionState{}
	}
	return state
}

// NextDue returns the earliest unix time at which a transfer is due given state.
func (g *PeriodicGate) NextDue(state SubscriptionState) uint64 {
	if state.LastTransferTime > ^uint64(0)-g.interval {
		return ^uint64(0)
	}
	return state.LastTransferTime + g.interval
}

func (g *PeriodicGate) isDue(state SubscriptionState, now uint64) bool {
	if now < state.LastTransferTime {
		return false
	}
	return now-state.LastTransferTime >= g.interval
}
