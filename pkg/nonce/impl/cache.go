package impl

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/pkg/nonce"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/instrument"
)

// LocalCache is an in-memory nonce cache for a single managed address.
type LocalCache struct {
	log    zerolog.Logger
	reader nonce.SequenceReader

	mu    sync.Mutex
	state nonce.State

	// metrics
	mBaseLabels     []attribute.KeyValue
	mInvalidations  instrument.Int64Counter
	mLedgerQueries  instrument.Int64Counter
	mConfirmations  instrument.Int64Counter
	mStaleConfirmed instrument.Int64Counter
}

var _ nonce.NonceCache = (*LocalCache)(nil)

// NewLocalCache creates an empty cache that falls back to reader when it holds no value.
func NewLocalCache(reader nonce.SequenceReader, chainID int64) (*LocalCache, error) {
	c := &LocalCache{
		log: logger.With().
			Str("component", "noncecache").
			Int64("chain_id", chainID).
			Logger(),
		reader: reader,
	}
	if err := c.initMetrics(chainID); err != nil {
		return nil, fmt.Errorf("initializing metrics: %s", err)
	}
	return c, nil
}

// PeekNext returns the cached state.
func (c *LocalCache) PeekNext() nonce.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReserveNext returns the cached next nonce or, if unknown, the ledger's sequence number for addr.
// The cache is not modified by a reservation.
func (c *LocalCache) ReserveNext(ctx context.Context, addr common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Known && c.state.Address == addr {
		return c.state.Value, nil
	}
	if c.state.Known {
		c.log.Warn().
			Str("cached_address", c.state.Address.Hex()).
			Str("address", addr.Hex()).
			Msg("identity address changed, dropping cached nonce")
		c.state = nonce.State{}
	}

	c.mLedgerQueries.Add(ctx, 1, c.mBaseLabels...)
	seq, err := c.reader.SequenceNumber(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("querying sequence number of %s: %s: %w", addr.Hex(), err, nonce.ErrSequenceLookup)
	}
	c.log.Debug().
		Str("address", addr.Hex()).
		Uint64("nonce", seq).
		Msg("nonce resolved from ledger")

	return seq, nil
}

// Confirm sets the next nonce to n+1. A confirmation older than the cached value is ignored so the
// cache never moves backwards.
func (c *LocalCache) Confirm(addr common.Address, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Known && c.state.Address == addr && n+1 < c.state.Value {
		c.mStaleConfirmed.Add(context.Background(), 1, c.mBaseLabels...)
		c.log.Warn().
			Uint64("nonce", n).
			Uint64("cached_next", c.state.Value).
			Msg("ignoring stale confirmation")
		return
	}

	c.state = nonce.State{
		Address: addr,
		Value:   n + 1,
		Known:   true,
	}
	c.mConfirmations.Add(context.Background(), 1, c.mBaseLabels...)
	c.log.Debug().
		Str("address", addr.Hex()).
		Uint64("next_nonce", n+1).
		Msg("nonce confirmed")
}

// Invalidate clears the cache.
func (c *LocalCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Known {
		c.log.Info().
			Uint64("cached_next", c.state.Value).
			Msg("invalidating cached nonce")
	}
	c.state = nonce.State{}
	c.mInvalidations.Add(context.Background(), 1, c.mBaseLabels...)
}
