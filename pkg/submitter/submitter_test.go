package submitter

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/textileio/go-autopay/pkg/identity"
	"github.com/textileio/go-autopay/pkg/ledger"
	nonceimpl "github.com/textileio/go-autopay/pkg/nonce/impl"
)

var (
	managed = common.HexToAddress("0x2a4B1E3cC4b0e3D4e5f6A7b8c9D0e1F2a3B4c5D6")
	source  = common.HexToAddress("0x63A0bfd6a5cdCF446ae12135E2CD86b908659563")
)

func TestSubmitConfirmedAdvancesNonce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLedgerFake(5)
	s, cache := setup(t, l)

	for i := uint64(0); i < 3; i++ {
		receipt, err := s.Submit(ctx, big.NewInt(1))
		require.NoError(t, err)
		require.Equal(t, 5+i, receipt.Nonce)
		require.Equal(t, source, receipt.From)
		require.Equal(t, managed, receipt.To)
		require.Equal(t, int64(1), receipt.Amount.Int64())
	}

	state := cache.PeekNext()
	require.True(t, state.Known)
	require.Equal(t, uint64(8), state.Value)
	require.Equal(t, 1, l.sequenceCalls)
	require.Equal(t, []uint64{5, 6, 7}, l.submittedNonces)
}

func TestSubmitExplicitDestination(t *testing.T) {
	t.Parallel()

	dest := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	l := newLedgerFake(0)
	cache, err := nonceimpl.NewLocalCache(l, 1337)
	require.NoError(t, err)
	s := New(&identityFake{}, cache, l, Config{Source: source, Destination: dest, ChainID: big.NewInt(1337)})

	receipt, err := s.Submit(context.Background(), big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, dest, receipt.To)
	require.Equal(t, dest, l.lastRequest.To)
	require.Equal(t, int64(1337), l.lastRequest.ChainID.Int64())
}

func TestSubmitIdentityUnavailable(t *testing.T) {
	t.Parallel()

	l := newLedgerFake(0)
	cache, err := nonceimpl.NewLocalCache(l, 1337)
	require.NoError(t, err)
	s := New(&identityFake{err: identity.ErrIdentityUnavailable}, cache, l, Config{Source: source})

	_, err = s.Submit(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, ErrIdentityUnavailable)
	require.Equal(t, 0, l.sequenceCalls)
	require.Empty(t, l.submittedNonces)

	_, err = s.Address(context.Background())
	require.ErrorIs(t, err, ErrIdentityUnavailable)
}

func TestSubmitSequenceLookupFailure(t *testing.T) {
	t.Parallel()

	l := newLedgerFake(0)
	l.sequenceErr = errors.New("connection refused")
	s, cache := setup(t, l)

	_, err := s.Submit(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, ErrSequenceLookupFailed)
	require.Empty(t, l.submittedNonces)
	require.False(t, cache.PeekNext().Known)
}

func TestSubmitRejectedInvalidatesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLedgerFake(10)
	s, cache := setup(t, l)

	_, err := s.Submit(ctx, big.NewInt(1))
	require.NoError(t, err)
	require.True(t, cache.PeekNext().Known)

	l.submitErr = &ledger.RejectedError{Reason: "nonce too low"}
	_, err = s.Submit(ctx, big.NewInt(1))
	require.ErrorIs(t, err, ErrSubmissionRejected)
	var rejected *SubmissionRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "nonce too low", rejected.Reason)
	require.Equal(t, uint64(11), rejected.Nonce)
	require.False(t, cache.PeekNext().Known)

	// the next submission re-reads the sequence number from the ledger
	l.submitErr = nil
	l.sequence = 20
	receipt, err := s.Submit(ctx, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(20), receipt.Nonce)
	require.Equal(t, 2, l.sequenceCalls)
}

func TestSubmitTransportFailureInvalidatesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLedgerFake(3)
	s, cache := setup(t, l)

	_, err := s.Submit(ctx, big.NewInt(1))
	require.NoError(t, err)

	l.submitErr = errors.New("i/o timeout")
	_, err = s.Submit(ctx, big.NewInt(1))
	require.ErrorIs(t, err, ErrSubmissionFailed)
	require.NotErrorIs(t, err, ErrSubmissionRejected)
	require.False(t, cache.PeekNext().Known)
}

func TestSubmitConfirmationUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(*ledgerFake)
		detail error
	}{
		{
			name:   "not found",
			setup:  func(l *ledgerFake) { l.lookupErr = ledger.ErrNotFound },
			detail: ErrTransactionPending,
		},
		{
			name:   "lookup error",
			setup:  func(l *ledgerFake) { l.lookupErr = errors.New("bad gateway") },
			detail: ErrLookupFailed,
		},
		{
			name:   "not included",
			setup:  func(l *ledgerFake) { l.unconfirmed = true },
			detail: ErrTransactionPending,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			l := newLedgerFake(4)
			s, cache := setup(t, l)

			_, err := s.Submit(ctx, big.NewInt(1))
			require.NoError(t, err)
			before := cache.PeekNext()

			tc.setup(l)
			_, err = s.Submit(ctx, big.NewInt(1))
			require.ErrorIs(t, err, ErrConfirmationUnavailable)
			require.ErrorIs(t, err, tc.detail)

			var unavailable *ConfirmationUnavailableError
			require.ErrorAs(t, err, &unavailable)
			require.Equal(t, uint64(5), unavailable.Nonce)
			require.Equal(t, l.lastHash, unavailable.Hash)

			// the cache is left untouched
			require.Equal(t, before, cache.PeekNext())
		})
	}
}

func TestSubmitRevertedConsumesNonce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLedgerFake(4)
	l.reverted = true
	s, cache := setup(t, l)

	_, err := s.Submit(ctx, big.NewInt(1))
	require.ErrorIs(t, err, ErrTransactionReverted)
	var reverted *TransactionRevertedError
	require.True(t, errors.As(err, &reverted))
	require.Equal(t, l.lastHash, reverted.Hash)
	require.Equal(t, uint64(4), reverted.Nonce)

	state := cache.PeekNext()
	require.True(t, state.Known)
	require.Equal(t, uint64(5), state.Value)

	_, err = s.Reconcile(ctx, l.lastHash)
	require.ErrorIs(t, err, ErrTransactionReverted)

	l.reverted = false
	receipt, err := s.Submit(ctx, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(5), receipt.Nonce)
	require.Equal(t, 1, l.sequenceCalls)
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLedgerFake(9)
	s, cache := setup(t, l)

	l.unconfirmed = true
	_, err := s.Submit(ctx, big.NewInt(1))
	var unavailable *ConfirmationUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.False(t, cache.PeekNext().Known)

	_, err = s.Reconcile(ctx, unavailable.Hash)
	require.ErrorIs(t, err, ErrTransactionPending)

	l.unconfirmed = false
	receipt, err := s.Reconcile(ctx, unavailable.Hash)
	require.NoError(t, err)
	require.Equal(t, uint64(9), receipt.Nonce)
	require.Equal(t, uint64(10), cache.PeekNext().Value)

	_, err = s.Reconcile(ctx, common.HexToHash("0x01"))
	require.ErrorIs(t, err, ErrConfirmationUnavailable)
}

func TestReconcileForeignTransaction(t *testing.T) {
	t.Parallel()

	l := newLedgerFake(0)
	s, cache := setup(t, l)

	hash := common.HexToHash("0xbeef")
	l.txs[hash] = ledger.TransactionReceipt{Hash: hash, Nonce: 100, Confirmed: true, Sender: source}

	_, err := s.Reconcile(context.Background(), hash)
	require.Error(t, err)
	require.False(t, cache.PeekNext().Known)
}

func setup(t *testing.T, l *ledgerFake) (*Submitter, *nonceimpl.LocalCache) {
	t.Helper()

	cache, err := nonceimpl.NewLocalCache(l, 1337)
	require.NoError(t, err)
	return New(&identityFake{}, cache, l, Config{Source: source, ChainID: big.NewInt(1337)}), cache
}

type identityFake struct {
	err error
}

func (f *identityFake) Identity(_ context.Context) (identity.Identity, error) {
	if f.err != nil {
		return identity.Identity{}, f.err
	}
	return identity.Identity{Address: managed}, nil
}

type ledgerFake struct {
	sequence      uint64
	sequenceErr   error
	sequenceCalls int

	submitErr       error
	submittedNonces []uint64
	lastRequest     ledger.TransactionRequest
	lastHash        common.Hash

	lookupErr   error
	unconfirmed bool
	reverted    bool
	txs         map[common.Hash]ledger.TransactionReceipt
}

func newLedgerFake(sequence uint64) *ledgerFake {
	return &ledgerFake{
		sequence: sequence,
		txs:      map[common.Hash]ledger.TransactionReceipt{},
	}
}

func (f *ledgerFake) SequenceNumber(_ context.Context, _ common.Address) (uint64, error) {
	f.sequenceCalls++
	return f.sequence, f.sequenceErr
}

func (f *ledgerFake) Submit(
	_ context.Context,
	id identity.Identity,
	req ledger.TransactionRequest,
) (common.Hash, error) {
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	f.submittedNonces = append(f.submittedNonces, req.Nonce)
	f.lastRequest = req
	f.lastHash = common.BigToHash(new(big.Int).SetUint64(req.Nonce + 1000))
	f.txs[f.lastHash] = ledger.TransactionReceipt{
		Hash:   f.lastHash,
		Nonce:  req.Nonce,
		Sender: id.Address,
	}
	return f.lastHash, nil
}

func (f *ledgerFake) Transaction(_ context.Context, hash common.Hash) (ledger.TransactionReceipt, error) {
	if f.lookupErr != nil {
		return ledger.TransactionReceipt{}, f.lookupErr
	}
	r, ok := f.txs[hash]
	if !ok {
		return ledger.TransactionReceipt{}, ledger.ErrNotFound
	}
	r.Confirmed = r.Confirmed || !f.unconfirmed
	r.Reverted = r.Reverted || f.reverted
	return r, nil
}
