package domain

import (
	"fmt"
	"math"
	"strings"
)

// Defaults applied to fields missing from a request.
const (
	DefaultState       = "Unknown"
	DefaultMonth       = 1
	DefaultRainfall    = 0.0
	DefaultPH          = 7.0
	DefaultBOD         = 0.0
	DefaultNitrate     = 0.0
	DefaultTemperature = 25.0
)

// FeatureRecord is a fully resolved input vector. It is transient: only the
// projection in PredictionRecord is persisted.
type FeatureRecord struct {
	State    string  `json:"state"`
	Month    int     `json:"month"`
	Rainfall float64 `json:"rainfall"`
	PH       float64 `json:"ph"`
	BOD      float64 `json:"bod"`
	Nitrate  float64 `json:"nitrate"`
	Temp     float64 `json:"temp"`
}

// FeatureInput is the wire form of a scoring request. Every field is
// optional; nil fields take the documented defaults.
type FeatureInput struct {
	State       *string  `json:"state"`
	Month       *float64 `json:"month"`
	Rainfall    *float64 `json:"rainfall"`
	PH          *float64 `json:"ph"`
	BOD         *float64 `json:"bod"`
	Nitrate     *float64 `json:"nitrate"`
	Temp        *float64 `json:"temp"`
	Temperature *float64 `json:"temperature"`
}

// Resolve applies defaults and the temp/temperature alias, then validates
// the result. Errors wrap ErrInvalidFeatures.
func (in FeatureInput) Resolve() (FeatureRecord, error) {
	rec := FeatureRecord{
		State:    DefaultState,
		Month:    DefaultMonth,
		Rainfall: floatOr(in.Rainfall, DefaultRainfall),
		PH:       floatOr(in.PH, DefaultPH),
		BOD:      floatOr(in.BOD, DefaultBOD),
		Nitrate:  floatOr(in.Nitrate, DefaultNitrate),
		Temp:     floatOr(in.Temperature, DefaultTemperature),
	}
	if in.Temp != nil {
		rec.Temp = *in.Temp
	}
	if in.State != nil {
		rec.State = NormalizeState(*in.State)
	}
	if in.Month != nil {
		m := *in.Month
		if m != math.Trunc(m) {
			return FeatureRecord{}, fmt.Errorf("%w: month must be a whole number, got %v", ErrInvalidFeatures, m)
		}
		rec.Month = int(m)
	}
	if err := rec.Validate(); err != nil {
		return FeatureRecord{}, err
	}
	return rec, nil
}

// Validate checks ranges that the classifier cannot meaningfully score.
func (r FeatureRecord) Validate() error {
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: month %d outside 1-12", ErrInvalidFeatures, r.Month)
	}
	fields := []struct {
		name        string
		value       float64
		nonNegative bool
	}{
		{"rainfall", r.Rainfall, true},
		{"ph", r.PH, false},
		{"bod", r.BOD, true},
		{"nitrate", r.Nitrate, true},
		{"temp", r.Temp, false},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidFeatures, f.name)
		}
		if f.nonNegative && f.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidFeatures, f.name, f.value)
		}
	}
	return nil
}

// NormalizeState trims s and substitutes DefaultState for blank input.
func NormalizeState(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultState
	}
	return s
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
