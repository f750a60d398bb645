// Package domain models upcoming sports events and their weather/forecast
// enrichment.
//
// # Data Source
//
// Fixtures come from TheSportsDB "next events" endpoint for one league. Each
// event names a venue; the venue lookup yields a location string that is
// either a city ("Bilbao, Spain") or a coordinate string copied from an
// encyclopedia infobox.
//
// # Coordinate Strings
//
// Two notations are recognized, each as a pair (latitude first):
//
//	DMS:     42°50′14″N 2°41′17″W
//	Decimal: 42.2118°N 8.7397°O
//
// Hemisphere letters are N, S, E, W and O. "O" is Spanish "Oeste" (West) and
// appears in Spanish-language sources. S, W and O negate the value.
//
// Anything else is [ErrUnparseableInput]: one coordinate, three coordinates, a
// DMS/decimal mix, or a pair outside latitude [-90, 90] / longitude
// [-180, 180]. Callers then treat the location as a place name, see
// [ResolveWeather].
//
// # Enrichment
//
// [EnrichEvent] attaches current weather and an LLM-written forecast. Each step
// degrades independently: a failed lookup is logged and recorded as
// "failed" without dropping the event.
package domain
