package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Client implements domain.WeatherProvider using the OpenWeatherMap current
// weather API.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(baseURL, key string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// WeatherByPlace returns current conditions for a place name such as "Bilbao, Spain".
func (c *Client) WeatherByPlace(ctx context.Context, place string) (domain.WeatherReport, error) {
	params := url.Values{"q": {place}}
	return c.doRequest(ctx, params, domain.WeatherByPlace)
}

// WeatherByCoordinates returns current conditions at a coordinate pair.
func (c *Client) WeatherByCoordinates(ctx context.Context, coords domain.Coordinates) (domain.WeatherReport, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(coords.Lat, 'f', 6, 64)},
		"lon": {strconv.FormatFloat(coords.Lon, 'f', 6, 64)},
	}
	return c.doRequest(ctx, params, domain.WeatherByCoordinates)
}

func (c *Client) doRequest(ctx context.Context, params url.Values, method string) (domain.WeatherReport, error) {
	params.Set("appid", c.key)
	params.Set("units", "metric")
	fullURL := c.baseURL + "/weather?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherReport{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues("openweather").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.WeatherReport{}, fmt.Errorf("weather by %s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherReport{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.WeatherReport{}, fmt.Errorf("decode response: %w", err)
	}

	report := domain.WeatherReport{
		TemperatureC: owResp.Main.Temp,
		FeelsLikeC:   owResp.Main.FeelsLike,
		HumidityPct:  owResp.Main.Humidity,
		WindSpeedMS:  owResp.Wind.Speed,
		Place:        owResp.Name,
		Coordinates:  domain.Coordinates{Lat: owResp.Coord.Lat, Lon: owResp.Coord.Lon},
		Method:       method,
		FetchedAt:    c.clock.Now().UTC(),
	}
	if len(owResp.Weather) > 0 {
		report.Description = owResp.Weather[0].Description
	}
	c.logger.Debug("weather fetched", "method", method, "place", report.Place)
	return report, nil
}

// OpenWeatherMap API response types.

type response struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}
