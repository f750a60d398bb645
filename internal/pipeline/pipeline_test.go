package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/couchcryptid/match-forecast-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	events []domain.SportsEvent
	errs   []error // consumed one per call; nil entries succeed
	calls  atomic.Int64
}

func (m *mockSource) NextEvents(_ context.Context) ([]domain.SportsEvent, error) {
	i := int(m.calls.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return m.events, nil
}

type mockEnricher struct{}

func (mockEnricher) Enrich(_ context.Context, event domain.SportsEvent) domain.EnrichedEvent {
	return domain.EnrichedEvent{
		SportsEvent:    event,
		Forecast:       "forecast for " + event.ID,
		WeatherSource:  domain.SourceNone,
		ForecastSource: domain.ForecastByLLM,
	}
}

type mockStore struct {
	mu     sync.Mutex
	stored [][]domain.EnrichedEvent
	err    error
}

func (m *mockStore) UpsertEvents(_ context.Context, events []domain.EnrichedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, events)
	return nil
}

type mockPublisher struct {
	published []domain.EnrichedEvent
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, events []domain.EnrichedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, events...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvents(ids ...string) []domain.SportsEvent {
	out := make([]domain.SportsEvent, len(ids))
	for i, id := range ids {
		out[i] = domain.SportsEvent{ID: id, LeagueID: "4335"}
	}
	return out
}

// --- RunOnce ---

func TestPipeline_RunOnce_HappyPath(t *testing.T) {
	src := &mockSource{events: sampleEvents("1", "2", "3", "4", "5", "6")}
	store := &mockStore{}
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(src, mockEnricher{}, store, pub, discardLogger(), metrics)
	require.Error(t, p.CheckReadiness(context.Background()))

	got, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4", "5", "6"}, ids); diff != "" {
		t.Errorf("enriched order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "forecast for 3", got[2].Forecast)

	require.Len(t, store.stored, 1)
	assert.Len(t, store.stored[0], 6)
	assert.Len(t, pub.published, 6)
	require.NoError(t, p.CheckReadiness(context.Background()))

	assert.InDelta(t, 6, testutil.ToFloat64(metrics.EventsFetched), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(metrics.EventsStored), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(metrics.EventsPublished), 0)
}

func TestPipeline_RunOnce_FetchError(t *testing.T) {
	src := &mockSource{errs: []error{errors.New("sports API error: status 503")}}
	store := &mockStore{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(src, mockEnricher{}, store, nil, discardLogger(), metrics)

	_, err := p.RunOnce(context.Background())
	require.ErrorIs(t, err, pipeline.ErrFetch)
	assert.Contains(t, err.Error(), "status 503")
	assert.Empty(t, store.stored)
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineErrors.WithLabelValues("fetch")), 0)
}

func TestPipeline_RunOnce_StoreError(t *testing.T) {
	src := &mockSource{events: sampleEvents("1")}
	store := &mockStore{err: errors.New("connection reset")}
	pub := &mockPublisher{}

	p := pipeline.New(src, mockEnricher{}, store, pub, discardLogger(), observability.NewMetricsForTesting())

	_, err := p.RunOnce(context.Background())
	require.ErrorIs(t, err, pipeline.ErrStore)
	assert.NotErrorIs(t, err, pipeline.ErrFetch)
	assert.Empty(t, pub.published, "nothing is published when storing fails")
}

func TestPipeline_RunOnce_PublishErrorNotReturned(t *testing.T) {
	src := &mockSource{events: sampleEvents("1", "2")}
	store := &mockStore{}
	pub := &mockPublisher{err: errors.New("broker unavailable")}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(src, mockEnricher{}, store, pub, discardLogger(), metrics)

	got, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, store.stored, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineErrors.WithLabelValues("publish")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.EventsPublished), 0)
}

func TestPipeline_RunOnce_NoStoreNoPublisher(t *testing.T) {
	src := &mockSource{events: sampleEvents("1")}

	p := pipeline.New(src, mockEnricher{}, nil, nil, discardLogger(), observability.NewMetricsForTesting())

	got, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPipeline_RunOnce_NoEvents(t *testing.T) {
	src := &mockSource{}
	store := &mockStore{}

	p := pipeline.New(src, mockEnricher{}, store, nil, discardLogger(), observability.NewMetricsForTesting())

	got, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, store.stored)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

// --- Run ---

func TestPipeline_Run_Disabled(t *testing.T) {
	src := &mockSource{}
	p := pipeline.New(src, mockEnricher{}, nil, nil, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, p.Run(context.Background()))
	assert.Zero(t, src.calls.Load())
}

func TestPipeline_Run_RefreshesOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &mockSource{events: sampleEvents("1")}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(src, mockEnricher{}, &mockStore{}, nil, discardLogger(), metrics,
		pipeline.WithRefreshInterval(time.Minute),
		pipeline.WithClock(clock),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(1), src.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineRunning), 0)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	stop()
	require.NoError(t, <-errCh)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_BacksOffOnFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fail := errors.New("timeout")
	src := &mockSource{
		events: sampleEvents("1"),
		errs:   []error{fail, fail, nil},
	}

	p := pipeline.New(src, mockEnricher{}, nil, nil, discardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithRefreshInterval(time.Hour),
		pipeline.WithClock(clock),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx) }()

	// First failure waits 200ms.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(199 * time.Millisecond)
	assert.Equal(t, int64(1), src.calls.Load())
	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	// Second failure waits 400ms.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(400 * time.Millisecond)
	require.Eventually(t, func() bool { return src.calls.Load() == 3 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return p.CheckReadiness(ctx) == nil }, time.Second, 5*time.Millisecond)

	stop()
	require.NoError(t, <-errCh)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{}
	p := pipeline.New(src, mockEnricher{}, nil, nil, discardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithRefreshInterval(time.Minute),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, src.calls.Load())
}
