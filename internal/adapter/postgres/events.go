package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

const upsertEvent = `
INSERT INTO events (
	id_event, name, home_team, away_team, home_team_id, away_team_id,
	event_date, event_time, home_team_badge, away_team_badge, league_id,
	venue_id, venue, location, weather, forecast, weather_source,
	forecast_source, enriched_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now())
ON CONFLICT (id_event) DO UPDATE
SET name            = EXCLUDED.name,
	home_team       = EXCLUDED.home_team,
	away_team       = EXCLUDED.away_team,
	home_team_id    = EXCLUDED.home_team_id,
	away_team_id    = EXCLUDED.away_team_id,
	event_date      = EXCLUDED.event_date,
	event_time      = EXCLUDED.event_time,
	home_team_badge = EXCLUDED.home_team_badge,
	away_team_badge = EXCLUDED.away_team_badge,
	league_id       = EXCLUDED.league_id,
	venue_id        = EXCLUDED.venue_id,
	venue           = EXCLUDED.venue,
	location        = EXCLUDED.location,
	weather         = EXCLUDED.weather,
	forecast        = EXCLUDED.forecast,
	weather_source  = EXCLUDED.weather_source,
	forecast_source = EXCLUDED.forecast_source,
	enriched_at     = EXCLUDED.enriched_at,
	updated_at      = now();
`

// UpsertEvents inserts or replaces the given events in a single transaction.
func (s *Store) UpsertEvents(ctx context.Context, events []domain.EnrichedEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("upsert events: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range events {
		weather, err := marshalWeather(e.Weather)
		if err != nil {
			return fmt.Errorf("upsert event %s: %w", e.ID, err)
		}
		batch.Queue(upsertEvent,
			e.ID, e.Name, e.HomeTeam, e.AwayTeam, e.HomeTeamID, e.AwayTeamID,
			e.Date, e.Time, e.HomeTeamBadge, e.AwayTeamBadge, e.LeagueID,
			e.VenueID, e.Venue, e.Location, weather, e.Forecast, e.WeatherSource,
			e.ForecastSource, e.EnrichedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("upsert events: commit: %w", err)
	}
	return nil
}

// ListEvents returns up to limit stored events, latest fixture first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]domain.EnrichedEvent, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT id_event, name, home_team, away_team, home_team_id, away_team_id,
		event_date, event_time, home_team_badge, away_team_badge, league_id,
		venue_id, venue, location, weather, forecast, weather_source,
		forecast_source, enriched_at
	FROM events
	ORDER BY event_date DESC, event_time DESC, id_event
	LIMIT $1;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.EnrichedEvent, 0, limit)
	for rows.Next() {
		var e domain.EnrichedEvent
		var weather []byte
		if err := rows.Scan(
			&e.ID, &e.Name, &e.HomeTeam, &e.AwayTeam, &e.HomeTeamID, &e.AwayTeamID,
			&e.Date, &e.Time, &e.HomeTeamBadge, &e.AwayTeamBadge, &e.LeagueID,
			&e.VenueID, &e.Venue, &e.Location, &weather, &e.Forecast, &e.WeatherSource,
			&e.ForecastSource, &e.EnrichedAt,
		); err != nil {
			return nil, fmt.Errorf("list events: scan: %w", err)
		}
		if len(weather) > 0 {
			var report domain.WeatherReport
			if err := json.Unmarshal(weather, &report); err != nil {
				return nil, fmt.Errorf("list events: decode weather for %s: %w", e.ID, err)
			}
			e.Weather = &report
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: rows: %w", err)
	}
	return out, nil
}

// marshalWeather returns nil for a missing report so the column stores NULL.
func marshalWeather(w *domain.WeatherReport) ([]byte, error) {
	if w == nil {
		return nil, nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode weather: %w", err)
	}
	return b, nil
}
