package domain

import (
	"context"
	"log/slog"
)

// Geo is a WGS-84 latitude/longitude pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeocodeCountry scopes forward geocoding of state names.
const GeocodeCountry = "in"

// stateCentroids are the overlay anchors used by the dashboard map.
var stateCentroids = map[string]Geo{
	"Assam":           {Lat: 26.2006, Lon: 92.9376},
	"Delhi":           {Lat: 28.7041, Lon: 77.1025},
	"Maharashtra":     {Lat: 19.7515, Lon: 75.7139},
	"Tamil Nadu":      {Lat: 11.1271, Lon: 78.6569},
	"Odisha":          {Lat: 20.9517, Lon: 85.0985},
	"Kerala":          {Lat: 10.8505, Lon: 76.2711},
	"Jharkhand":       {Lat: 23.6102, Lon: 85.2799},
	"Gujarat":         {Lat: 22.2587, Lon: 71.1924},
	"Uttar Pradesh":   {Lat: 26.8467, Lon: 80.9462},
	"Chhattisgarh":    {Lat: 21.2787, Lon: 81.8661},
	DefaultState:      {Lat: 20.5937, Lon: 78.9629},
	"Karnataka":       {Lat: 15.3173, Lon: 75.7139},
	"Rajasthan":       {Lat: 27.0238, Lon: 74.2179},
	"Bihar":           {Lat: 25.0961, Lon: 85.3131},
	"West Bengal":     {Lat: 22.9868, Lon: 87.8550},
	"Jammu & Kashmir": {Lat: 33.7782, Lon: 76.5762},
}

// LocateState returns coordinates for a state name. Known states use the
// built-in centroid table. Other names are forward geocoded when a geocoder
// is configured, and fall back to the national centroid otherwise or on
// failure (graceful degradation).
func LocateState(ctx context.Context, state string, geocoder Geocoder, logger *slog.Logger) Geo {
	state = NormalizeState(state)
	if g, ok := stateCentroids[state]; ok {
		return g
	}
	fallback := stateCentroids[DefaultState]
	if geocoder == nil {
		return fallback
	}

	result, err := geocoder.ForwardGeocode(ctx, state, GeocodeCountry)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"state", state,
			"error", err,
		)
		return fallback
	}
	if result.Lat == 0 && result.Lon == 0 {
		return fallback
	}
	return Geo{Lat: result.Lat, Lon: result.Lon}
}
