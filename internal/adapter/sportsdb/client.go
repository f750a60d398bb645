package sportsdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
)

// Client reads upcoming fixtures from TheSportsDB v1 JSON API.
type Client struct {
	key        string
	leagueID   string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a TheSportsDB client for one league.
func NewClient(baseURL, key, leagueID string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		key:      key,
		leagueID: leagueID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// LeagueID returns the league this client fetches.
func (c *Client) LeagueID() string {
	return c.leagueID
}

// NextEvents returns the league's upcoming events with each venue's location
// resolved. A failed venue lookup leaves the venue name as the location.
func (c *Client) NextEvents(ctx context.Context) ([]domain.SportsEvent, error) {
	var resp eventsResponse
	if err := c.get(ctx, "eventsnext.php", url.Values{"id": {c.leagueID}}, &resp); err != nil {
		return nil, fmt.Errorf("next events: %w", err)
	}

	events := make([]domain.SportsEvent, 0, len(resp.Events))
	venues := make(map[string]string)
	for _, e := range resp.Events {
		ev := e.toDomain()
		if ev.VenueID != "" {
			loc, ok := venues[ev.VenueID]
			if !ok {
				var err error
				loc, err = c.VenueLocation(ctx, ev.VenueID)
				if err != nil {
					c.logger.Warn("venue lookup failed",
						"event_id", ev.ID,
						"venue_id", ev.VenueID,
						"error", err,
					)
				}
				venues[ev.VenueID] = loc
			}
			ev.Location = loc
		}
		if ev.Location == "" {
			ev.Location = ev.Venue
		}
		events = append(events, ev)
	}
	return events, nil
}

// VenueLocation returns the best location string for a venue: its map
// coordinates when they look like a coordinate string, else its city.
func (c *Client) VenueLocation(ctx context.Context, venueID string) (string, error) {
	var resp venuesResponse
	if err := c.get(ctx, "lookupvenue.php", url.Values{"id": {venueID}}, &resp); err != nil {
		return "", fmt.Errorf("lookup venue %s: %w", venueID, err)
	}
	if len(resp.Venues) == 0 {
		return "", nil
	}

	v := resp.Venues[0]
	if domain.LooksLikeCoordinates(v.Map) {
		return strings.TrimSpace(v.Map), nil
	}
	loc := strings.TrimSpace(v.Location)
	if loc != "" && v.Country != "" && !strings.Contains(loc, v.Country) {
		loc = loc + ", " + v.Country
	}
	return loc, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dst any) error {
	u := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, url.PathEscape(c.key), endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues("sportsdb").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sportsdb API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// TheSportsDB API response types. Collections are null when empty.

type eventsResponse struct {
	Events []event `json:"events"`
}

type event struct {
	IDEvent          string `json:"idEvent"`
	StrEvent         string `json:"strEvent"`
	StrHomeTeam      string `json:"strHomeTeam"`
	StrAwayTeam      string `json:"strAwayTeam"`
	IDHomeTeam       string `json:"idHomeTeam"`
	IDAwayTeam       string `json:"idAwayTeam"`
	DateEvent        string `json:"dateEvent"`
	StrTime          string `json:"strTime"`
	StrHomeTeamBadge string `json:"strHomeTeamBadge"`
	StrAwayTeamBadge string `json:"strAwayTeamBadge"`
	IDLeague         string `json:"idLeague"`
	IDVenue          string `json:"idVenue"`
	StrVenue         string `json:"strVenue"`
}

func (e event) toDomain() domain.SportsEvent {
	return domain.SportsEvent{
		ID:            e.IDEvent,
		Name:          e.StrEvent,
		HomeTeam:      e.StrHomeTeam,
		AwayTeam:      e.StrAwayTeam,
		HomeTeamID:    e.IDHomeTeam,
		AwayTeamID:    e.IDAwayTeam,
		Date:          e.DateEvent,
		Time:          e.StrTime,
		HomeTeamBadge: e.StrHomeTeamBadge,
		AwayTeamBadge: e.StrAwayTeamBadge,
		LeagueID:      e.IDLeague,
		VenueID:       e.IDVenue,
		Venue:         e.StrVenue,
	}
}

type venuesResponse struct {
	Venues []venue `json:"venues"`
}

type venue struct {
	StrVenue string `json:"strVenue"`
	Location string `json:"strLocation"`
	Country  string `json:"strCountry"`
	Map      string `json:"strMap"`
}
