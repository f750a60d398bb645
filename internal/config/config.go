package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Environment     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// PostgreSQL connection string, assembled from DB_* unless DATABASE_URL is set.
	DatabaseURL string

	// Access token signing.
	SecretKey string
	Algorithm string
	TokenTTL  time.Duration

	// TheSportsDB configuration.
	SportsKey      string
	SportsBaseURL  string
	SportsLeagueID string
	SportsTimeout  time.Duration

	// OpenWeatherMap configuration.
	WeatherKey       string
	WeatherEnabled   bool
	WeatherBaseURL   string
	WeatherTimeout   time.Duration
	WeatherCacheSize int
	WeatherCacheTTL  time.Duration

	// OpenAI forecast configuration.
	OpenAIKey       string
	ForecastEnabled bool
	ForecastModel   string
	OpenAIBaseURL   string
	ForecastTimeout time.Duration

	// RefreshInterval drives the background pipeline; zero disables it.
	RefreshInterval time.Duration

	// Optional Kafka publishing of enriched events.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where
// unset. Outside production a .dev_env file (or ENV_FILE) is read first; values
// already present in the environment win.
func Load() (*Config, error) {
	env := sharedcfg.EnvOrDefault("ENVIRONMENT", "development")
	if err := loadEnvFile(env); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	tokenTTL, err := parsePositiveDuration("TOKEN_TTL", "30m")
	if err != nil {
		return nil, err
	}
	sportsTimeout, err := parsePositiveDuration("SPORTS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parsePositiveDuration("WEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	weatherCacheTTL, err := parsePositiveDuration("WEATHER_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	forecastTimeout, err := parsePositiveDuration("FORECAST_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "0s"))
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	weatherKey := os.Getenv("WEATHER_KEY")
	openAIKey := os.Getenv("OPENAI_KEY")
	kafkaBrokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		Environment:     env,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseURL: databaseURL(),

		SecretKey: os.Getenv("SECRET_KEY"),
		Algorithm: strings.ToUpper(sharedcfg.EnvOrDefault("ALGORITHM", "HS256")),
		TokenTTL:  tokenTTL,

		SportsKey:      sharedcfg.EnvOrDefault("SPORTS_KEY", "3"),
		SportsBaseURL:  sharedcfg.EnvOrDefault("SPORTS_BASE_URL", "https://www.thesportsdb.com/api/v1/json"),
		SportsLeagueID: sharedcfg.EnvOrDefault("SPORTS_LEAGUE_ID", "4335"),
		SportsTimeout:  sportsTimeout,

		WeatherKey:       weatherKey,
		WeatherEnabled:   flag("WEATHER_ENABLED", weatherKey != ""),
		WeatherBaseURL:   sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		WeatherTimeout:   weatherTimeout,
		WeatherCacheSize: parsePositiveInt("WEATHER_CACHE_SIZE", 500),
		WeatherCacheTTL:  weatherCacheTTL,

		OpenAIKey:       openAIKey,
		ForecastEnabled: flag("FORECAST_ENABLED", openAIKey != ""),
		ForecastModel:   sharedcfg.EnvOrDefault("FORECAST_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   sharedcfg.EnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ForecastTimeout: forecastTimeout,

		RefreshInterval: refreshInterval,

		KafkaEnabled: flag("KAFKA_ENABLED", len(kafkaBrokers) > 0),
		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "enriched-sports-events"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported ALGORITHM %q", c.Algorithm)
	}
	if c.SportsLeagueID == "" {
		return errors.New("SPORTS_LEAGUE_ID is required")
	}
	if c.WeatherEnabled && c.WeatherKey == "" {
		return errors.New("WEATHER_ENABLED is true but WEATHER_KEY is not set")
	}
	if c.ForecastEnabled && c.OpenAIKey == "" {
		return errors.New("FORECAST_ENABLED is true but OPENAI_KEY is not set")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if c.KafkaEnabled && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required")
	}
	return nil
}

// loadEnvFile reads the local env file outside production. A missing file is
// not an error.
func loadEnvFile(env string) error {
	if env == "production" {
		return nil
	}
	path := sharedcfg.EnvOrDefault("ENV_FILE", ".dev_env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(sharedcfg.EnvOrDefault("DB_USER", "postgres"), os.Getenv("DB_PASS")),
		Host:     sharedcfg.EnvOrDefault("DB_HOST", "localhost") + ":" + sharedcfg.EnvOrDefault("DB_PORT", "5432"),
		Path:     "/" + sharedcfg.EnvOrDefault("DB_NAME", "matchforecast"),
		RawQuery: "sslmode=" + sharedcfg.EnvOrDefault("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// flag returns the explicit boolean in key when set, otherwise def.
func flag(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}
