package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are a football analyst. Given an upcoming match and the weather " +
	"at the venue, write a short forecast (at most three sentences) of how the " +
	"match is likely to go and who is favored. Do not invent injuries or statistics."

// Client implements domain.Forecaster with the OpenAI chat completions API.
type Client struct {
	api     openaisdk.Client
	model   string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a chat completions client for the given model. Failed
// calls are not retried; the enrichment step records them and moves on.
func NewClient(baseURL, key, model string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		api: openaisdk.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(baseURL),
			option.WithHTTPClient(&http.Client{Timeout: timeout}),
			option.WithMaxRetries(0),
		),
		model:   model,
		metrics: metrics,
		logger:  logger,
	}
}

// Forecast asks the model for a short preview of the event.
func (c *Client) Forecast(ctx context.Context, event domain.SportsEvent, weather *domain.WeatherReport) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(buildPrompt(event, weather)),
		},
		Temperature: openaisdk.Float(0.7),
		MaxTokens:   openaisdk.Int(200),
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	c.metrics.UpstreamDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai API error: status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	c.logger.Debug("forecast generated",
		"event_id", event.ID,
		"model", c.model,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(event domain.SportsEvent, weather *domain.WeatherReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s vs %s\n", event.HomeTeam, event.AwayTeam)
	fmt.Fprintf(&b, "Kick-off: %s %s UTC\n", event.Date, event.Time)
	if event.Venue != "" {
		fmt.Fprintf(&b, "Venue: %s\n", event.Venue)
	}
	if weather != nil {
		fmt.Fprintf(&b, "Weather: %s, %.1f°C (feels like %.1f°C), humidity %.0f%%, wind %.1f m/s\n",
			weather.Description, weather.TemperatureC, weather.FeelsLikeC, weather.HumidityPct, weather.WindSpeedMS)
	} else {
		b.WriteString("Weather: unknown\n")
	}
	return b.String()
}
