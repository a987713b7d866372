package gate

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/textileio/go-autopay/pkg/ledger"
)

func TestNotDueWithinInterval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sub := &submitterFake{}
	store := &storeFake{}
	g := newGate(t, sub, store, time.Hour)

	const t0 = uint64(1_700_000_000)
	_, err := g.CheckAndMaybeTransfer(ctx, t0, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, t0, store.state.LastTransferTime)

	_, err = g.CheckAndMaybeTransfer(ctx, t0+3600-1, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotDue)
	require.Equal(t, t0, store.state.LastTransferTime)
	require.Equal(t, 1, sub.calls)
}

func TestDueAfterExactInterval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sub := &submitterFake{}
	store := &storeFake{}
	g := newGate(t, sub, store, time.Hour)

	const t0 = uint64(1_700_000_000)
	_, err := g.CheckAndMaybeTransfer(ctx, t0, big.NewInt(1))
	require.NoError(t, err)
	_, err = g.CheckAndMaybeTransfer(ctx, t0+3600, big.NewInt(1))
	require.NoError(t, err)

	require.Equal(t, t0+3600, store.state.LastTransferTime)
	require.Equal(t, 2, sub.calls)
}

func TestSubmitFailureKeepsDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	submitErr := errors.New("submission rejected: insufficient allowance")
	sub := &submitterFake{err: submitErr}
	store := &storeFake{state: SubscriptionState{LastTransferTime: 100}}
	g := newGate(t, sub, store, time.Minute)

	_, err := g.CheckAndMaybeTransfer(ctx, 200, big.NewInt(1))
	require.Equal(t, submitErr, err)
	require.Equal(t, uint64(100), store.state.LastTransferTime)
	require.Equal(t, 0, store.saves)

	// same trigger time, still due
	sub.err = nil
	_, err = g.CheckAndMaybeTransfer(ctx, 200, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(200), store.state.LastTransferTime)
	require.Equal(t, 2, sub.calls)
}

func TestDailyScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("due at interval", func(t *testing.T) {
		t.Parallel()

		sub := &submitterFake{nonce: 5}
		store := &storeFake{}
		g := newGate(t, sub, store, DefaultInterval)
		require.Equal(t, uint64(86400), g.Interval())

		receipt, err := g.CheckAndMaybeTransfer(ctx, 86400, big.NewInt(1))
		require.NoError(t, err)
		require.Equal(t, uint64(5), receipt.Nonce)
		require.Equal(t, uint64(86400), store.state.LastTransferTime)
	})

	t.Run("one second early", func(t *testing.T) {
		t.Parallel()

		sub := &submitterFake{nonce: 5}
		store := &storeFake{}
		g := newGate(t, sub, store, DefaultInterval)

		_, err := g.CheckAndMaybeTransfer(ctx, 86399, big.NewInt(1))
		require.ErrorIs(t, err, ErrNotDue)
		require.Equal(t, uint64(0), store.state.LastTransferTime)
		require.Equal(t, 0, sub.calls)
	})
}

func TestClockBehindStoredTime(t *testing.T) {
	t.Parallel()

	sub := &submitterFake{}
	store := &storeFake{state: SubscriptionState{LastTransferTime: 10_000}}
	g := newGate(t, sub, store, time.Second)

	_, err := g.CheckAndMaybeTransfer(context.Background(), 5_000, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotDue)
	require.Equal(t, 0, sub.calls)
}

func TestZeroIntervalAlwaysDue(t *testing.T) {
	t.Parallel()

	sub := &submitterFake{}
	store := &storeFake{}
	g := newGate(t, sub, store, 0)

	for i := 0; i < 3; i++ {
		_, err := g.CheckAndMaybeTransfer(context.Background(), 42, big.NewInt(1))
		require.NoError(t, err)
	}
	require.Equal(t, 3, sub.calls)
}

func TestLoadFailureSkipsTransfer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sub := &submitterFake{}
	store := &storeFake{}
	g := newGate(t, sub, store, DefaultInterval)

	const t0 = uint64(1_700_000_000)
	_, err := g.CheckAndMaybeTransfer(ctx, t0, big.NewInt(1))
	require.NoError(t, err)

	store.loadErr = errors.New("redis: i/o timeout")
	_, err = g.CheckAndMaybeTransfer(ctx, t0+60, big.NewInt(1))
	require.ErrorIs(t, err, ErrStateLoad)
	require.Equal(t, 1, sub.calls)
	require.Equal(t, t0, store.state.LastTransferTime)

	// reporting still falls back to the zero state
	require.Equal(t, SubscriptionState{}, g.State(ctx))

	store.loadErr = nil
	_, err = g.CheckAndMaybeTransfer(ctx, t0+60, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotDue)
	require.Equal(t, 1, sub.calls)
}

func TestSaveFailureReturnsReceipt(t *testing.T) {
	t.Parallel()

	sub := &submitterFake{nonce: 9}
	store := &storeFake{saveErr: errors.New("read-only database")}
	g := newGate(t, sub, store, DefaultInterval)

	receipt, err := g.CheckAndMaybeTransfer(context.Background(), 86400, big.NewInt(1))
	require.ErrorIs(t, err, ErrStateSave)
	require.Equal(t, uint64(9), receipt.Nonce)
	require.True(t, receipt.Confirmed)
}

func TestNegativeInterval(t *testing.T) {
	t.Parallel()

	_, err := NewPeriodicGate(&submitterFake{}, &storeFake{}, -time.Second)
	require.Error(t, err)
}

func TestNextDue(t *testing.T) {
	t.Parallel()

	g := newGate(t, &submitterFake{}, &storeFake{}, DefaultInterval)
	require.Equal(t, uint64(86400), g.NextDue(SubscriptionState{}))
	require.Equal(t, uint64(86400+100), g.NextDue(SubscriptionState{LastTransferTime: 100}))
	require.Equal(t, ^uint64(0), g.NextDue(SubscriptionState{LastTransferTime: ^uint64(0) - 1}))
}

func newGate(t *testing.T, sub Submitter, store StateStore, interval time.Duration) *PeriodicGate {
	t.Helper()

	g, err := NewPeriodicGate(sub, store, interval)
	require.NoError(t, err)
	return g
}

type submitterFake struct {
	nonce uint64
	err   error
	calls int
}

func (f *submitterFake) Submit(_ context.Context, amount *big.Int) (ledger.TransactionReceipt, error) {
	f.calls++
	if f.err != nil {
		return ledger.TransactionReceipt{}, f.err
	}
	n := f.nonce
	f.nonce++
	return ledger.TransactionReceipt{
		Hash:      common.BigToHash(new(big.Int).SetUint64(n)),
		Nonce:     n,
		Confirmed: true,
		Amount:    amount,
	}, nil
}

type storeFake struct {
	state   SubscriptionState
	loadErr error
	saveErr error
	saves   int
}

func (f *storeFake) Load(_ context.Context) (SubscriptionState, error) {
	if f.loadErr != nil {
		return SubscriptionState{}, f.loadErr
	}
	return f.state, nil
}

func (f *storeFake) Save(_ context.Context, s SubscriptionState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.state = s
	return nil
}
