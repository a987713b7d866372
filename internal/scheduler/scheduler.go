package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/internal/autopay"
	"github.com/textileio/go-autopay/pkg/metrics"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.uber.org/atomic"
)

var log = logger.With().Str("component", "scheduler").Logger()

// Trigger evaluates the periodic transfer.
type Trigger interface {
	TransferPeriodically(context.Context) (string, error)
}

// Stats summarizes the scheduler activity since it started.
type Stats struct {
	Runs      int64
	Transfers int64
	NotDue    int64
	Failures  int64
	LastRun   time.Time
}

// Scheduler fires the periodic transfer check at a regular interval.
// The gate behind the trigger decides whether a transfer actually happens.
type Scheduler struct {
	Interval       time.Duration
	NotificationCh chan error

	trigger Trigger
	notify  bool

	runs      *atomic.Int64
	transfers *atomic.Int64
	notDue    *atomic.Int64
	failures  *atomic.Int64
	lastRun   *atomic.Int64

	// control
	close     chan struct{}
	closeOnce sync.Once
}

// NewScheduler creates a new scheduler. If notify is true, the outcome of every run is sent
// to NotificationCh, which must be drained.
func NewScheduler(interval time.Duration, trigger Trigger, notify bool) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive: %s", interval)
	}
	s := &Scheduler{
		Interval:       interval,
		NotificationCh: make(chan error),

		trigger: trigger,
		notify:  notify,

		runs:      atomic.NewInt64(0),
		transfers: atomic.NewInt64(0),
		notDue:    atomic.NewInt64(0),
		failures:  atomic.NewInt64(0),
		lastRun:   atomic.NewInt64(0),

		close: make(chan struct{}),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("initializing metrics: %s", err)
	}
	return s, nil
}

// Run checks for a due transfer right away and then every Interval, until ctx is done
// or Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.Interval).Msg("starting transfer scheduler")

	var period time.Duration
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("closing transfer scheduler")
			return
		case <-s.close:
			log.Info().Msg("closing transfer scheduler")
			return
		case <-time.After(period):
		}

		startTime := time.Now()
		err := s.run(ctx)
		if s.notify {
			select {
			case s.NotificationCh <- err:
			case <-s.close:
				return
			case <-ctx.Done():
				return
			}
		}
		period = s.Interval - time.Since(startTime)
	}
}

// Shutdown gracefully shutdowns the scheduler.
func (s *Scheduler) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.close)
	})
}

// Stats returns the scheduler counters.
func (s *Scheduler) Stats() Stats {
	stats := Stats{
		Runs:      s.runs.Load(),
		Transfers: s.transfers.Load(),
		NotDue:    s.notDue.Load(),
		Failures:  s.failures.Load(),
	}
	if last := s.lastRun.Load(); last != 0 {
		stats.LastRun = time.Unix(last, 0)
	}
	return stats
}

func (s *Scheduler) run(ctx context.Context) error {
	s.runs.Inc()
	s.lastRun.Store(time.Now().Unix())

	desc, err := s.trigger.TransferPeriodically(ctx)
	switch {
	case errors.Is(err, autopay.ErrTransferNotDue):
		s.notDue.Inc()
		log.Debug().Msg("transfer not due")
	case err != nil:
		s.failures.Inc()
		log.Error().Err(err).Msg("periodic transfer failed")
	default:
		s.transfers.Inc()
		log.Info().Str("transaction", desc).Msg("periodic transfer succeeded")
	}
	return err
}

func (s *Scheduler) initMetrics() error {
	meter := global.MeterProvider().Meter("autopay")
	mRuns, err := meter.Int64ObservableGauge("autopay.scheduler.runs")
	if err != nil {
		return fmt.Errorf("creating runs gauge: %s", err)
	}
	mTransfers, err := meter.Int64ObservableGauge("autopay.scheduler.transfers")
	if err != nil {
		return fmt.Errorf("creating transfers gauge: %s", err)
	}
	mNotDue, err := meter.Int64ObservableGauge("autopay.scheduler.not_due")
	if err != nil {
		return fmt.Errorf("creating not due gauge: %s", err)
	}
	mFailures, err := meter.Int64ObservableGauge("autopay.scheduler.failures")
	if err != nil {
		return fmt.Errorf("creating failures gauge: %s", err)
	}
	mLastRun, err := meter.Int64ObservableGauge("autopay.scheduler.last_run")
	if err != nil {
		return fmt.Errorf("creating last run gauge: %s", err)
	}

	if _, err := meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(mRuns, s.runs.Load(), metrics.BaseAttrs...)
			o.ObserveInt64(mTransfers, s.transfers.Load(), metrics.BaseAttrs...)
			o.ObserveInt64(mNotDue, s.notDue.Load(), metrics.BaseAttrs...)
			o.ObserveInt64(mFailures, s.failures.Load(), metrics.BaseAttrs...)
			o.ObserveInt64(mLastRun, s.lastRun.Load(), metrics.BaseAttrs...)
			return nil
		}, mRuns, mTransfers, mNotDue, mFailures, mLastRun); err != nil {
		return fmt.Errorf("registering callback: %s", err)
	}
	return nil
}
