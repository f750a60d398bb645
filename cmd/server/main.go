package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/match-forecast-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/match-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/match-forecast-service/internal/adapter/openai"
	"github.com/couchcryptid/match-forecast-service/internal/adapter/openweather"
	"github.com/couchcryptid/match-forecast-service/internal/adapter/postgres"
	"github.com/couchcryptid/match-forecast-service/internal/adapter/sportsdb"
	"github.com/couchcryptid/match-forecast-service/internal/auth"
	"github.com/couchcryptid/match-forecast-service/internal/config"
	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/couchcryptid/match-forecast-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	accounts, err := auth.NewService(store, cfg.SecretKey, cfg.Algorithm, cfg.TokenTTL, clock, metrics, logger)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		os.Exit(1)
	}

	sports := sportsdb.NewClient(cfg.SportsBaseURL, cfg.SportsKey, cfg.SportsLeagueID, cfg.SportsTimeout, metrics, logger)
	logger.Info("sports source configured", "league_id", sports.LeagueID(), "refresh_interval", cfg.RefreshInterval)

	// Weather lookups (feature-flagged via WEATHER_ENABLED / WEATHER_KEY).
	var weather domain.WeatherProvider
	if cfg.WeatherEnabled {
		client := openweather.NewClient(cfg.WeatherBaseURL, cfg.WeatherKey, cfg.WeatherTimeout, metrics, logger)
		weather = openweather.NewCachedWeather(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clock, metrics)
		logger.Info("weather enrichment enabled", "cache_size", cfg.WeatherCacheSize, "cache_ttl", cfg.WeatherCacheTTL)
	} else {
		logger.Info("weather enrichment disabled")
	}

	var forecaster domain.Forecaster
	if cfg.ForecastEnabled {
		forecaster = openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.ForecastModel, cfg.ForecastTimeout, metrics, logger)
		logger.Info("forecast enrichment enabled", "model", cfg.ForecastModel)
	} else {
		logger.Info("forecast enrichment disabled")
	}

	var publisher pipeline.Publisher
	var kafkaWriter *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaWriter
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	enricher := pipeline.NewEnricher(weather, forecaster, metrics, logger)
	p := pipeline.New(sports, enricher, store, publisher, logger, metrics,
		pipeline.WithRefreshInterval(cfg.RefreshInterval),
		pipeline.WithClock(clock),
	)

	// With periodic refresh the service is ready after the first run; without
	// it, readiness only tracks the database.
	var ready sharedobs.ReadinessChecker = store
	if cfg.RefreshInterval > 0 {
		ready = httpadapter.AllReady(store, p)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, accounts, p, store, ready, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
