package domain

import "time"

// HeatmapWindow is the trailing window served by the heatmap feed.
const HeatmapWindow = 7 * 24 * time.Hour

// HeatmapPoint is one prediction projected for the map overlay. Lat and Lon
// are optional enrichment; the first three fields round-trip the stored
// prediction exactly.
type HeatmapPoint struct {
	State       string    `json:"state"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Probability float64   `json:"probability"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
}

// Summary holds running prediction counts. Each count is computed
// independently against the store.
type Summary struct {
	TotalPredictions int64 `json:"total_predictions"`
	HighRisk         int64 `json:"high_risk"`
	ModerateRisk     int64 `json:"moderate_risk"`
	LowRisk          int64 `json:"low_risk"`
}
