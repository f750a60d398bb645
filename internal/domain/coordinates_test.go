package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinates_DMS(t *testing.T) {
	got, err := ParseCoordinates("42°50′14″N 2°41′17″W")
	require.NoError(t, err)

	assert.InDelta(t, 42+50.0/60+14.0/3600, got.Lat, 1e-9)
	assert.InDelta(t, -(2 + 41.0/60 + 17.0/3600), got.Lon, 1e-9)
	assert.InDelta(t, 42.8372, got.Lat, 1e-4)
	assert.InDelta(t, -2.6881, got.Lon, 1e-4)
}

func TestParseCoordinates_DecimalAlternateWest(t *testing.T) {
	got, err := ParseCoordinates("42.2118°N 8.7397°O")
	require.NoError(t, err)

	assert.Equal(t, 42.2118, got.Lat)
	assert.Equal(t, -8.7397, got.Lon)
}

func TestParseCoordinates_HemisphereSigns(t *testing.T) {
	tests := []struct {
		name string
		in   string
		lat  float64
		lon  float64
	}{
		{"dms north east", "40°25′0″N 3°42′0″E", 40 + 25.0/60, 3 + 42.0/60},
		{"dms south west", "34°36′12″S 58°22′54″W", -(34 + 36.0/60 + 12.0/3600), -(58 + 22.0/60 + 54.0/3600)},
		{"dms alternate west", "43°15′48″N 2°56′5″O", 43 + 15.0/60 + 48.0/3600, -(2 + 56.0/60 + 5.0/3600)},
		{"decimal south east", "33.8688°S 151.2093°E", -33.8688, 151.2093},
		{"decimal west", "40.4168°N 3.7038°W", 40.4168, -3.7038},
		{"decimal integers", "0°N 0°E", 0, 0},
		{"spaced marks", "43.2641° N, 2.9494° W", 43.2641, -2.9494},
		{"surrounding text", "Estadio: 42.2118°N 8.7397°O (Balaídos)", 42.2118, -8.7397},
		{"letter e before number", "Rue42°N 3°E", 42, 3},
		{"hemisphere before number", "1°E3°N", 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinates(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.lat, got.Lat, 1e-9)
			assert.InDelta(t, tt.lon, got.Lon, 1e-9)
		})
	}
}

func TestParseCoordinates_Failures(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"single dms", "42°50′14″N"},
		{"single decimal", "42.2118°N"},
		{"plain text", "not coordinates at all"},
		{"mixed formats", "42°50′14″N 8.7397°W"},
		{"three decimals", "1°N 2°E 3°N"},
		{"three dms", "1°2′3″N 4°5′6″E 7°8′9″S"},
		{"unknown letter", "42.2118°X 8.7397°Y"},
		{"lowercase letters", "42.2118°n 8.7397°w"},
		{"no marks", "42.2118 N 8.7397 W"},
		{"latitude out of range", "120°N 8°W"},
		{"longitude out of range", "10°0′0″N 181°0′0″E"},
		{"overflowing degrees", "99999999999°0′0″N 1°0′0″E"},
		{"leading dot", ".5°N .25°E"},
		{"one leading dot", "42.5°N .25°E"},
		{"repeated dots", "12.34.56°N 1°E"},
		{"exponent", "1e2°N 3°E"},
		{"upper exponent", "4.2E1°N 3°E"},
		{"signed exponent", "1e+2°N 3°E"},
		{"fractional dms seconds", "42°50′14.5″N 2°41′17.5″W"},
		{"fractional dms degrees", "42.5°50′14″N 2°41′17″W"},
		{"negative decimal", "-33.8°S 151°E"},
		{"positive decimal", "+33.8°N 151°E"},
		{"negative dms", "-34°36′12″S 58°22′54″W"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinates(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnparseableInput)
			assert.Equal(t, Coordinates{}, got)
		})
	}
}

func TestParseCoordinates_DMSFormula(t *testing.T) {
	letters := []struct {
		letter string
		sign   float64
	}{{"N", 1}, {"S", -1}, {"E", 1}, {"W", -1}}

	for d := 0; d <= 80; d += 20 {
		for m := 0; m < 60; m += 17 {
			for s := 0; s < 60; s += 23 {
				for _, h1 := range letters {
					for _, h2 := range letters {
						in := fmt.Sprintf("%d°%d′%d″%s %d°%d′%d″%s", d, m, s, h1.letter, d+1, s, m, h2.letter)
						got, err := ParseCoordinates(in)
						require.NoError(t, err, in)

						wantLat := h1.sign * (float64(d) + float64(m)/60 + float64(s)/3600)
						wantLon := h2.sign * (float64(d+1) + float64(s)/60 + float64(m)/3600)
						assert.InDelta(t, wantLat, got.Lat, 1e-9, in)
						assert.InDelta(t, wantLon, got.Lon, 1e-9, in)
					}
				}
			}
		}
	}
}

func TestCoordinateParser_ExtraLetter(t *testing.T) {
	// German sources write Ost for East and would otherwise collide with "O".
	p := NewCoordinateParser(WithHemisphereLetter('O', East))

	got, err := p.Parse("52.52°N 13.405°O")
	require.NoError(t, err)
	assert.Equal(t, 13.405, got.Lon)

	// The package default still reads "O" as West.
	got, err = ParseCoordinates("52.52°N 13.405°O")
	require.NoError(t, err)
	assert.Equal(t, -13.405, got.Lon)
}

func TestCoordinateParser_ConcurrentUse(t *testing.T) {
	p := NewCoordinateParser()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Parse("42°50′14″N 2°41′17″W")
			assert.NoError(t, err)
			assert.InDelta(t, 42.8372, got.Lat, 1e-4)
		}()
	}
	wg.Wait()
}

func TestHemisphere(t *testing.T) {
	assert.Equal(t, "N", North.String())
	assert.Equal(t, "W", West.String())
	assert.Equal(t, "?", Hemisphere(0).String())
	assert.Equal(t, 1.0, East.Sign())
	assert.Equal(t, -1.0, South.Sign())
}

func TestLooksLikeCoordinates(t *testing.T) {
	assert.True(t, LooksLikeCoordinates("42°50′14″N 2°41′17″W"))
	assert.True(t, LooksLikeCoordinates("42.2118°N"))
	assert.True(t, LooksLikeCoordinates("14″"))
	assert.False(t, LooksLikeCoordinates("Bilbao, Spain"))
	assert.False(t, LooksLikeCoordinates(""))
}
