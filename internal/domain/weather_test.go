package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock weather provider ---

type mockWeather struct {
	coordsResult WeatherReport
	coordsErr    error
	placeResult  WeatherReport
	placeErr     error

	coordsCalls []Coordinates
	placeCalls  []string
}

func (m *mockWeather) WeatherByCoordinates(_ context.Context, c Coordinates) (WeatherReport, error) {
	m.coordsCalls = append(m.coordsCalls, c)
	return m.coordsResult, m.coordsErr
}

func (m *mockWeather) WeatherByPlace(_ context.Context, place string) (WeatherReport, error) {
	m.placeCalls = append(m.placeCalls, place)
	return m.placeResult, m.placeErr
}

func TestResolveWeather_Coordinates(t *testing.T) {
	wp := &mockWeather{coordsResult: WeatherReport{Description: "clear sky", TemperatureC: 18}}

	report, source, err := ResolveWeather(context.Background(), "42.2118°N 8.7397°O", wp)
	require.NoError(t, err)

	assert.Equal(t, WeatherByCoordinates, source)
	assert.Equal(t, WeatherByCoordinates, report.Method)
	assert.Equal(t, "clear sky", report.Description)
	require.Len(t, wp.coordsCalls, 1)
	assert.Equal(t, Coordinates{Lat: 42.2118, Lon: -8.7397}, wp.coordsCalls[0])
	assert.Empty(t, wp.placeCalls)
}

func TestResolveWeather_PlaceName(t *testing.T) {
	wp := &mockWeather{placeResult: WeatherReport{Description: "light rain"}}

	report, source, err := ResolveWeather(context.Background(), "  Bilbao, Spain ", wp)
	require.NoError(t, err)

	assert.Equal(t, WeatherByPlace, source)
	assert.Equal(t, WeatherByPlace, report.Method)
	assert.Equal(t, []string{"Bilbao, Spain"}, wp.placeCalls)
	assert.Empty(t, wp.coordsCalls)
}

func TestResolveWeather_UnparseableFallsBackToPlace(t *testing.T) {
	wp := &mockWeather{placeResult: WeatherReport{Description: "overcast"}}

	// Carries a degree mark but only one coordinate.
	_, source, err := ResolveWeather(context.Background(), "42°50′14″N", wp)
	require.NoError(t, err)

	assert.Equal(t, WeatherByPlace, source)
	assert.Equal(t, []string{"42°50′14″N"}, wp.placeCalls)
	assert.Empty(t, wp.coordsCalls)
}

func TestResolveWeather_EmptyLocation(t *testing.T) {
	wp := &mockWeather{}

	_, source, err := ResolveWeather(context.Background(), "   ", wp)
	require.NoError(t, err)

	assert.Equal(t, SourceNone, source)
	assert.Empty(t, wp.coordsCalls)
	assert.Empty(t, wp.placeCalls)
}

func TestResolveWeather_ProviderError(t *testing.T) {
	wp := &mockWeather{coordsErr: errors.New("401 invalid api key")}

	_, source, err := ResolveWeather(context.Background(), "42°50′14″N 2°41′17″W", wp)
	require.Error(t, err)
	assert.Equal(t, WeatherByCoordinates, source)
}
