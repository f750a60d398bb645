package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Stage errors returned by RunOnce, so callers can tell an upstream outage
// from a storage failure with errors.Is.
var (
	ErrFetch = errors.New("fetch events")
	ErrStore = errors.New("store events")
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	enrichWorkers  = 4
)

// EventSource reads the upcoming fixtures.
type EventSource interface {
	NextEvents(ctx context.Context) ([]domain.SportsEvent, error)
}

// Enricher attaches weather and a forecast to one event. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, event domain.SportsEvent) domain.EnrichedEvent
}

// EventStore persists enriched events.
type EventStore interface {
	UpsertEvents(ctx context.Context, events []domain.EnrichedEvent) error
}

// Publisher forwards enriched events downstream.
type Publisher interface {
	Publish(ctx context.Context, events []domain.EnrichedEvent) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRefreshInterval enables the periodic loop in Run. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.interval = d }
}

// WithClock overrides the clock used for the refresh ticker and backoff.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// Pipeline orchestrates the fetch-enrich-store-publish run.
type Pipeline struct {
	source    EventSource
	enricher  Enricher
	store     EventStore
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	interval  time.Duration

	mu    sync.Mutex // serializes RunOnce
	ready atomic.Bool
}

// New creates a Pipeline. store and publisher may be nil to skip persistence
// or publishing.
func New(source EventSource, enricher Enricher, store EventStore, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		enricher:  enricher,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// RunOnce fetches the upcoming events, enriches them, stores them, and
// publishes them. Publish failures are logged and counted but not returned.
func (p *Pipeline) RunOnce(ctx context.Context) ([]domain.EnrichedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	events, err := p.source.NextEvents(ctx)
	if err != nil {
		p.metrics.PipelineErrors.WithLabelValues("fetch").Inc()
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	p.metrics.EventsFetched.Add(float64(len(events)))

	enriched := p.enrichAll(ctx, events)

	if p.store != nil && len(enriched) > 0 {
		if err := p.store.UpsertEvents(ctx, enriched); err != nil {
			p.metrics.PipelineErrors.WithLabelValues("store").Inc()
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		p.metrics.EventsStored.Add(float64(len(enriched)))
	}

	if p.publisher != nil && len(enriched) > 0 {
		if err := p.publisher.Publish(ctx, enriched); err != nil {
			p.metrics.PipelineErrors.WithLabelValues("publish").Inc()
			p.logger.Error("publish events failed", "error", err, "count", len(enriched))
		} else {
			p.metrics.EventsPublished.Add(float64(len(enriched)))
		}
	}

	p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("pipeline run complete",
		"events", len(enriched),
		"duration", time.Since(start),
	)
	return enriched, nil
}

// enrichAll enriches events concurrently and keeps the source order.
func (p *Pipeline) enrichAll(ctx context.Context, events []domain.SportsEvent) []domain.EnrichedEvent {
	out := make([]domain.EnrichedEvent, len(events))
	var g errgroup.Group
	g.SetLimit(enrichWorkers)
	for i, event := range events {
		g.Go(func() error {
			out[i] = p.enricher.Enrich(ctx, event)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Run calls RunOnce on the refresh interval until the context is cancelled.
// Failed runs are retried with exponential backoff. Run returns immediately
// when no interval is configured.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.interval <= 0 {
		p.logger.Info("periodic refresh disabled")
		return nil
	}

	p.logger.Info("pipeline started", "refresh_interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		wait := p.interval
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("pipeline run failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, maxBackoff)
		} else {
			backoff = initialBackoff
		}

		if !p.sleep(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}
