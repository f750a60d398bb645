package domain

import (
	"context"
	"strings"
)

// WeatherProvider looks up current weather conditions.
type WeatherProvider interface {
	// WeatherByCoordinates returns conditions at a latitude/longitude.
	WeatherByCoordinates(ctx context.Context, c Coordinates) (WeatherReport, error)

	// WeatherByPlace returns conditions for a free-form place name.
	WeatherByPlace(ctx context.Context, place string) (WeatherReport, error)
}

// ResolveWeather picks the lookup strategy for a venue location string.
// Strings carrying degree/minute/second marks are parsed as coordinates; when
// parsing fails the original string is used as a place name. The returned
// source is one of WeatherByCoordinates, WeatherByPlace or SourceNone.
func ResolveWeather(ctx context.Context, location string, provider WeatherProvider) (WeatherReport, string, error) {
	location = strings.TrimSpace(location)
	if location == "" || provider == nil {
		return WeatherReport{}, SourceNone, nil
	}

	if LooksLikeCoordinates(location) {
		c, err := ParseCoordinates(location)
		if err == nil {
			report, err := provider.WeatherByCoordinates(ctx, c)
			if err != nil {
				return WeatherReport{}, WeatherByCoordinates, err
			}
			report.Method = WeatherByCoordinates
			return report, WeatherByCoordinates, nil
		}
	}

	report, err := provider.WeatherByPlace(ctx, location)
	if err != nil {
		return WeatherReport{}, WeatherByPlace, err
	}
	report.Method = WeatherByPlace
	return report, WeatherByPlace, nil
}
