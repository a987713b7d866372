package impl

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/textileio/go-autopay/pkg/identity"
	"github.com/textileio/go-autopay/pkg/ledger"
	"github.com/textileio/go-autopay/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/unit"
)

// InstrumentedClient is a ledger.Client decorator that records call counts and latencies.
type InstrumentedClient struct {
	client      ledger.Client
	baseAttrs   []attribute.KeyValue
	callCount   instrument.Int64Counter
	callLatency instrument.Int64Histogram
}

var _ ledger.Client = (*InstrumentedClient)(nil)

// NewInstrumentedClient creates a new InstrumentedClient.
func NewInstrumentedClient(client ledger.Client, chainID int64) (*InstrumentedClient, error) {
	meter := global.MeterProvider().Meter("autopay")
	callCount, err := meter.Int64Counter("autopay.ledger.call.count")
	if err != nil {
		return nil, fmt.Errorf("creating call count metric: %s", err)
	}
	callLatency, err := meter.Int64Histogram(
		"autopay.ledger.call.latency",
		instrument.WithUnit(string(unit.Milliseconds)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating call latency metric: %s", err)
	}

	return &InstrumentedClient{
		client:      client,
		baseAttrs:   append([]attribute.KeyValue{attribute.Int64("chain_id", chainID)}, metrics.BaseAttrs...),
		callCount:   callCount,
		callLatency: callLatency,
	}, nil
}

// SequenceNumber implements ledger.Client.
func (c *InstrumentedClient) SequenceNumber(ctx context.Context, account common.Address) (uint64, error) {
	start := time.Now()
	nonce, err := c.client.SequenceNumber(ctx, account)
	c.record(ctx, "SequenceNumber", err, start)
	return nonce, err
}

// Submit implements ledger.Client.
func (c *InstrumentedClient) Submit(
	ctx context.Context,
	id identity.Identity,
	req ledger.TransactionRequest,
) (common.Hash, error) {
	start := time.Now()
	hash, err := c.client.Submit(ctx, id, req)
	c.record(ctx, "Submit", err, start)
	return hash, err
}

// Transaction implements ledger.Client.
func (c *InstrumentedClient) Transaction(ctx context.Context, hash common.Hash) (ledger.TransactionReceipt, error) {
	start := time.Now()
	receipt, err := c.client.Transaction(ctx, hash)
	c.record(ctx, "Transaction", err, start)
	return receipt, err
}

func (c *InstrumentedClient) record(ctx context.Context, method string, err error, start time.Time) {
	attributes := append([]attribute.KeyValue{
		attribute.String("method", method),
		attribute.Bool("success", err == nil),
	}, c.baseAttrs...)

	c.callCount.Add(ctx, 1, attributes...)
	c.callLatency.Record(ctx, time.Since(start).Milliseconds(), attributes...)
}
