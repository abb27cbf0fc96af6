package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain_RanksTopThree(t *testing.T) {
	// Month, Rainfall, pH, BOD, Nitrate, Temperature
	expl := Explain([]float64{0.05, 0.30, 0.02, 0.25, 0.28, 0.10}, nil)

	require.False(t, expl.Fallback())
	assert.Equal(t, []string{"Rainfall", "Nitrate Level", "BOD Level"}, expl.Factors)
}

func TestExplain_TiesBreakByFeatureOrder(t *testing.T) {
	expl := Explain([]float64{0.1, 0.2, 0.2, 0.1, 0.2, 0.2}, nil)

	require.False(t, expl.Fallback())
	assert.Equal(t, []string{"Rainfall", "pH Level", "Nitrate Level"}, expl.Factors)
}

func TestExplain_AllZeroKeepsFeatureOrder(t *testing.T) {
	expl := Explain(make([]float64, len(FeatureNames)), nil)

	require.False(t, expl.Fallback())
	assert.Equal(t, []string{"Month", "Rainfall", "pH Level"}, expl.Factors)
}

func TestExplain_Fallback(t *testing.T) {
	tests := []struct {
		name        string
		importances []float64
		scoreErr    error
	}{
		{"scorer hook failed", []float64{1, 2, 3, 4, 5, 6}, errors.New("no classifier step")},
		{"nil importances", nil, nil},
		{"empty importances", []float64{}, nil},
		{"too few", []float64{0.5, 0.5}, nil},
		{"too many", []float64{1, 1, 1, 1, 1, 1, 1}, nil},
		{"negative", []float64{0.1, -0.2, 0.3, 0.1, 0.1, 0.1}, nil},
		{"nan", []float64{0.1, math.NaN(), 0.3, 0.1, 0.1, 0.1}, nil},
		{"inf", []float64{0.1, math.Inf(1), 0.3, 0.1, 0.1, 0.1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expl := Explain(tt.importances, tt.scoreErr)

			assert.True(t, expl.Fallback())
			assert.Error(t, expl.Err)
			assert.Equal(t, []string{"Environmental Conditions"}, expl.Factors)
		})
	}
}

func TestExplain_FallbackCarriesScorerError(t *testing.T) {
	hookErr := errors.New("importances not exposed")

	expl := Explain(nil, hookErr)

	assert.ErrorIs(t, expl.Err, hookErr)
}

func TestExplain_DoesNotMutateInput(t *testing.T) {
	in := []float64{0.05, 0.30, 0.02, 0.25, 0.28, 0.10}
	cp := append([]float64(nil), in...)

	Explain(in, nil)

	assert.Equal(t, cp, in)
}
