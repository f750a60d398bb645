package main

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/match-forecast-service/internal/adapter/openai"
	"github.com/couchcryptid/match-forecast-service/internal/adapter/openweather"
	"github.com/couchcryptid/match-forecast-service/internal/adapter/sportsdb"
	"github.com/couchcryptid/match-forecast-service/internal/config"
	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/couchcryptid/match-forecast-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newNextCmd() *cobra.Command {
	var league string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Fetch and enrich the next fixtures, printing JSON",
		Long: `Runs one fetch-and-enrich pass with the service configuration (environment
and .dev_env) and prints the enriched events. Nothing is stored or published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if league != "" {
				cfg.SportsLeagueID = league
			}

			// Logs go to stderr so stdout stays valid JSON.
			logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel, "text")
			metrics := observability.NewMetrics()

			var weather domain.WeatherProvider
			if cfg.WeatherEnabled {
				client := openweather.NewClient(cfg.WeatherBaseURL, cfg.WeatherKey, cfg.WeatherTimeout, metrics, logger)
				weather = openweather.NewCachedWeather(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clockwork.NewRealClock(), metrics)
			}
			var forecaster domain.Forecaster
			if cfg.ForecastEnabled {
				forecaster = openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.ForecastModel, cfg.ForecastTimeout, metrics, logger)
			}

			sports := sportsdb.NewClient(cfg.SportsBaseURL, cfg.SportsKey, cfg.SportsLeagueID, cfg.SportsTimeout, metrics, logger)
			p := pipeline.New(sports, pipeline.NewEnricher(weather, forecaster, metrics, logger), nil, nil, logger, metrics)

			events, err := p.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "TheSportsDB league id (defaults to SPORTS_LEAGUE_ID)")
	return cmd
}
