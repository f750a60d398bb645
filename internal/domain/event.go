package domain

import "time"

// SportsEvent is the projection of an upcoming fixture kept from the sports
// API. JSON names follow the upstream field names so API clients see the same
// shape they would get from TheSportsDB.
type SportsEvent struct {
	ID            string `json:"idEvent"`
	Name          string `json:"strEvent"`
	HomeTeam      string `json:"strHomeTeam"`
	AwayTeam      string `json:"strAwayTeam"`
	HomeTeamID    string `json:"idHomeTeam"`
	AwayTeamID    string `json:"idAwayTeam"`
	Date          string `json:"dateEvent"`
	Time          string `json:"strTime"`
	HomeTeamBadge string `json:"strHomeTeamBadge"`
	AwayTeamBadge string `json:"strAwayTeamBadge"`
	LeagueID      string `json:"idLeague"`
	VenueID       string `json:"idVenue"`
	Venue         string `json:"strVenue"`

	// Location is the venue's city or coordinate string, resolved from the
	// venue lookup. Empty when the venue is unknown.
	Location string `json:"strLocation,omitempty"`
}

// Weather resolution outcomes recorded on EnrichedEvent.WeatherSource.
const (
	WeatherByCoordinates = "coordinates"
	WeatherByPlace       = "place"
	SourceFailed         = "failed"
	SourceNone           = "none"
	ForecastByLLM        = "llm"
)

// WeatherReport is the current weather at an event's venue.
type WeatherReport struct {
	Description  string      `json:"description"`
	TemperatureC float64     `json:"temperature_c"`
	FeelsLikeC   float64     `json:"feels_like_c"`
	HumidityPct  float64     `json:"humidity_pct"`
	WindSpeedMS  float64     `json:"wind_speed_ms"`
	Place        string      `json:"place,omitempty"`
	Coordinates  Coordinates `json:"coordinates"`
	Method       string      `json:"method"`
	FetchedAt    time.Time   `json:"fetched_at"`
}

// EnrichedEvent is a SportsEvent with weather and a match forecast attached.
type EnrichedEvent struct {
	SportsEvent

	Weather        *WeatherReport `json:"weather,omitempty"`
	Forecast       string         `json:"forecast,omitempty"`
	WeatherSource  string         `json:"weather_source"`
	ForecastSource string         `json:"forecast_source"`
	EnrichedAt     time.Time      `json:"enriched_at"`
}
