package domain

import (
	"context"
	"log/slog"
)

// Forecaster produces a short natural-language preview of a match.
type Forecaster interface {
	Forecast(ctx context.Context, event SportsEvent, weather *WeatherReport) (string, error)
}

// EnrichEvent attaches weather and a forecast to an event. A nil provider or
// forecaster skips that step. Lookup failures are logged and recorded as
// SourceFailed; the event is always returned (graceful degradation).
func EnrichEvent(ctx context.Context, event SportsEvent, weather WeatherProvider, forecaster Forecaster, logger *slog.Logger) EnrichedEvent {
	out := EnrichedEvent{
		SportsEvent:    event,
		WeatherSource:  SourceNone,
		ForecastSource: SourceNone,
	}

	if weather != nil {
		report, source, err := ResolveWeather(ctx, event.Location, weather)
		switch {
		case err != nil:
			logger.Warn("weather lookup failed",
				"event_id", event.ID,
				"location", event.Location,
				"method", source,
				"error", err,
			)
			out.WeatherSource = SourceFailed
		case source != SourceNone:
			out.Weather = &report
			out.WeatherSource = source
		}
	}

	if forecaster != nil {
		text, err := forecaster.Forecast(ctx, event, out.Weather)
		if err != nil {
			logger.Warn("forecast generation failed",
				"event_id", event.ID,
				"error", err,
			)
			out.ForecastSource = SourceFailed
		} else if text != "" {
			out.Forecast = text
			out.ForecastSource = ForecastByLLM
		}
	}

	out.EnrichedAt = clock.Now().UTC()
	return out
}
