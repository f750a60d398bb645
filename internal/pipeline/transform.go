package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
)

// EventEnricher implements Enricher using the domain enrichment with optional
// weather and forecast providers.
type EventEnricher struct {
	weather    domain.WeatherProvider
	forecaster domain.Forecaster
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewEnricher creates an EventEnricher. Pass nil for either provider to skip
// that step.
func NewEnricher(weather domain.WeatherProvider, forecaster domain.Forecaster, metrics *observability.Metrics, logger *slog.Logger) *EventEnricher {
	return &EventEnricher{
		weather:    weather,
		forecaster: forecaster,
		metrics:    metrics,
		logger:     logger,
	}
}

func (e *EventEnricher) Enrich(ctx context.Context, event domain.SportsEvent) domain.EnrichedEvent {
	out := domain.EnrichEvent(ctx, event, e.weather, e.forecaster, e.logger)

	e.metrics.EnrichmentOutcomes.WithLabelValues("weather", out.WeatherSource).Inc()
	e.metrics.EnrichmentOutcomes.WithLabelValues("forecast", out.ForecastSource).Inc()
	return out
}
