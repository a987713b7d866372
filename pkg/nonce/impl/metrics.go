package impl

import (
	"context"
	"fmt"

	"github.com/textileio/go-autopay/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
)

func (c *LocalCache) initMetrics(chainID int64) error {
	meter := global.MeterProvider().Meter("autopay")
	c.mBaseLabels = append([]attribute.KeyValue{
		attribute.Int64("chain_id", chainID),
	}, metrics.BaseAttrs...)

	mNextNonce, err := meter.Int64ObservableGauge("autopay.noncecache.next")
	if err != nil {
		return fmt.Errorf("creating next nonce metric: %s", err)
	}
	mKnown, err := meter.Int64ObservableGauge("autopay.noncecache.known")
	if err != nil {
		return fmt.Errorf("creating known nonce metric: %s", err)
	}
	c.mInvalidations, err = meter.Int64Counter("autopay.noncecache.invalidations")
	if err != nil {
		return fmt.Errorf("creating invalidations metric: %s", err)
	}
	c.mLedgerQueries, err = meter.Int64Counter("autopay.noncecache.ledger.queries")
	if err != nil {
		return fmt.Errorf("creating ledger queries metric: %s", err)
	}
	c.mConfirmations, err = meter.Int64Counter("autopay.noncecache.confirmations")
	if err != nil {
		return fmt.Errorf("creating confirmations metric: %s", err)
	}
	c.mStaleConfirmed, err = meter.Int64Counter("autopay.noncecache.stale.confirmations")
	if err != nil {
		return fmt.Errorf("creating stale confirmations metric: %s", err)
	}

	if _, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			var known int64
			if c.state.Known {
				known = 1
			}
			o.ObserveInt64(mNextNonce, int64(c.state.Value), c.mBaseLabels...)
			o.ObserveInt64(mKnown, known, c.mBaseLabels...)

			return nil
		}, []instrument.Asynchronous{
			mNextNonce,
			mKnown,
		}...); err != nil {
		return fmt.Errorf("registering async metric callback: %s", err)
	}

	return nil
}
