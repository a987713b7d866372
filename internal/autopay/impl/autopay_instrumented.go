package impl

import (
	"context"
	"fmt"
	"time"

	"github.com/textileio/go-autopay/internal/autopay"
	"github.com/textileio/go-autopay/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/unit"
)

// InstrumentedService is an autopay.AutoPay with instrumentation.
type InstrumentedService struct {
	autopay          autopay.AutoPay
	callCount        instrument.Int64Counter
	latencyHistogram instrument.Int64Histogram
}

var _ autopay.AutoPay = (*InstrumentedService)(nil)

// NewInstrumentedService creates a new InstrumentedService.
func NewInstrumentedService(a autopay.AutoPay) (*InstrumentedService, error) {
	meter := global.MeterProvider().Meter("autopay")
	callCount, err := meter.Int64Counter("autopay.service.call.count")
	if err != nil {
		return nil, fmt.Errorf("creating call count metric: %s", err)
	}
	latencyHistogram, err := meter.Int64Histogram(
		"autopay.service.call.latency",
		instrument.WithUnit(string(unit.Milliseconds)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %s", err)
	}

	return &InstrumentedService{a, callCount, latencyHistogram}, nil
}

// Address implements autopay.AutoPay.
func (s *InstrumentedService) Address(ctx context.Context) (string, error) {
	start := time.Now()
	addr, err := s.autopay.Address(ctx)
	s.record(ctx, "Address", err, start)
	return addr, err
}

// Transfer implements autopay.AutoPay.
func (s *InstrumentedService) Transfer(ctx context.Context) (string, error) {
	start := time.Now()
	desc, err := s.autopay.Transfer(ctx)
	s.record(ctx, "Transfer", err, start)
	return desc, err
}

// TransferPeriodically implements autopay.AutoPay.
func (s *InstrumentedService) TransferPeriodically(ctx context.Context) (string, error) {
	start := time.Now()
	desc, err := s.autopay.TransferPeriodically(ctx)
	s.record(ctx, "TransferPeriodically", err, start)
	return desc, err
}

// Reconcile implements autopay.AutoPay.
func (s *InstrumentedService) Reconcile(ctx context.Context, hash string) (string, error) {
	start := time.Now()
	desc, err := s.autopay.Reconcile(ctx, hash)
	s.record(ctx, "Reconcile", err, start)
	return desc, err
}

// Status implements autopay.AutoPay.
func (s *InstrumentedService) Status(ctx context.Context) (autopay.Status, error) {
	start := time.Now()
	status, err := s.autopay.Status(ctx)
	s.record(ctx, "Status", err, start)
	return status, err
}

func (s *InstrumentedService) record(ctx context.Context, method string, err error, start time.Time) {
	outcome := "success"
	switch {
	case err == autopay.ErrTransferNotDue:
		outcome = "not_due"
	case err != nil:
		outcome = "error"
	}
	attributes := append([]attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	}, metrics.BaseAttrs...)

	s.callCount.Add(ctx, 1, attributes...)
	s.latencyHistogram.Record(ctx, time.Since(start).Milliseconds(), attributes...)
}
