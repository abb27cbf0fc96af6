package domain

import "errors"

var (
	// ErrInvalidFeatures marks a feature record rejected before scoring.
	ErrInvalidFeatures = errors.New("invalid feature record")

	// ErrScoring marks a failure of the scoring call. It is the only
	// pipeline failure surfaced to callers.
	ErrScoring = errors.New("scoring failed")

	// ErrMalformedDistribution marks scorer output that is not a usable
	// probability distribution over the three risk classes.
	ErrMalformedDistribution = errors.New("malformed class distribution")

	// ErrNoImportances is the fallback reason when the scorer exposes no
	// feature importances.
	ErrNoImportances = errors.New("feature importances unavailable")
)
