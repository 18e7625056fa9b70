// Package outbox delivers the notify events that checkout queues in the local outbox.
package outbox

import (
	"context"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/repository"
	"github.com/aminexfrad/F-S-SHOP/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	BatchSize          = 100
	DefaultMaxAttempts = 10
	DefaultRetention   = 7 * 24 * time.Hour
)

type Repository interface {
	GetUnprocessedEvents(ctx context.Context, limit, maxAttempts int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	MarkEventFailed(ctx context.Context, id int, cause error) (int, error)
	PurgeProcessed(ctx context.Context, before time.Time) (int64, error)
}

type Poller struct {
	eventTick   time.Duration
	purgeTick   time.Duration
	retention   time.Duration
	maxAttempts int
	repo        Repository
	notifier    Notifier
	breaker     *gobreaker.CircuitBreaker[struct{}]
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Poller)

func WithEventTick(d time.Duration) Option { return func(p *Poller) { p.eventTick = d } }

func WithPurgeTick(d time.Duration) Option { return func(p *Poller) { p.purgeTick = d } }

// WithRetention sets how long processed events are kept before purging.
func WithRetention(d time.Duration) Option { return func(p *Poller) { p.retention = d } }

// WithMaxAttempts sets after how many failed deliveries an event is left alone.
func WithMaxAttempts(n int) Option { return func(p *Poller) { p.maxAttempts = n } }

func WithBreaker(cfg circuitbreaker.Config) Option {
	return func(p *Poller) { p.breaker = circuitbreaker.New[struct{}](cfg, p.logger) }
}

func WithClock(now func() time.Time) Option { return func(p *Poller) { p.now = now } }

func NewPoller(repo Repository, notifier Notifier, logger *zap.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{
		eventTick:   time.Second,
		purgeTick:   time.Hour,
		retention:   DefaultRetention,
		maxAttempts: DefaultMaxAttempts,
		repo:        repo,
		notifier:    notifier,
		logger:      logger.Named("outbox"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = circuitbreaker.New[struct{}](circuitbreaker.DefaultConfig("outbox-notify"), p.logger)
	}
	return p
}

// Run delivers pending events until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	purgeTicker := time.NewTicker(p.purgeTick)
	defer eventTicker.Stop()
	defer purgeTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnprocessedEvents(ctx)
		case <-purgeTicker.C:
			p.purgeProcessedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnprocessedEvents delivers one batch and returns how many events went out.
func (p *Poller) processUnprocessedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, BatchSize, p.maxAttempts)
	if err != nil {
		p.logger.Error("failed to fetch events", zap.Error(err))
		return 0
	}

	delivered := 0
	for i, event := range events {
		if ctx.Err() != nil {
			return delivered
		}
		_, err := p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.notifier.Notify(ctx, event)
		})
		if circuitbreaker.IsOpen(err) {
			p.logger.Warn("notify sink unavailable, deferring batch", zap.Int("remaining", len(events)-i))
			return delivered
		}
		if err != nil {
			p.recordFailure(ctx, event, err)
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark event as processed", zap.Int("id", event.ID), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

func (p *Poller) recordFailure(ctx context.Context, event *repository.OutboxEvent, cause error) {
	attempts, err := p.repo.MarkEventFailed(ctx, event.ID, cause)
	if err != nil {
		p.logger.Error("failed to record delivery failure", zap.Int("id", event.ID), zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.Int("id", event.ID),
		zap.String("event_id", event.EventID),
		zap.String("aggregate_id", event.AggregateID),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	}
	if attempts >= p.maxAttempts {
		p.logger.Error("giving up on outbox event", fields...)
		return
	}
	p.logger.Warn("failed to deliver event", fields...)
}

func (p *Poller) purgeProcessedEvents(ctx context.Context) {
	n, err := p.repo.PurgeProcessed(ctx, p.now().Add(-p.retention))
	if err != nil {
		p.logger.Error("failed to purge processed events", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("purged processed events", zap.Int64("count", n))
	}
}

// ProcessOnce delivers a single batch right away, outside the ticker.
func (p *Poller) ProcessOnce(ctx context.Context) int {
	return p.processUnprocessedEvents(ctx)
}
