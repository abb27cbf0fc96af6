// Package domain models outbreak-risk decisions derived from environmental
// feature vectors (rainfall, water quality, temperature) reported per state.
//
// # Inputs
//
// A [FeatureRecord] carries the seven inputs the classifier was trained on:
//
//	state        free-text region label, "Unknown" when absent
//	month        1–12, defaults to 1
//	rainfall     mm, ≥ 0, defaults to 0
//	ph           unitless, defaults to 7.0
//	bod          biochemical oxygen demand in mg/L, ≥ 0, defaults to 0
//	nitrate      mg/L, ≥ 0, defaults to 0
//	temp         °C, defaults to 25; "temperature" is accepted as an alias
//
// # Decision cascade
//
// The classifier returns a calibrated [Distribution] over LOW, MODERATE and
// HIGH. The label is NOT the argmax. [ResolveRisk] walks a priority-ordered
// cascade and the first matching rule wins:
//
//	P(HIGH)     > 0.70  →  HIGH,     probability P(HIGH)
//	P(MODERATE) > 0.60  →  MODERATE, probability P(MODERATE)
//	otherwise           →  LOW,      probability P(LOW) (1.0 when absent)
//
// HIGH=0.65, MODERATE=0.30 therefore resolves to LOW: neither threshold is
// cleared and the cascade falls through to the cautious default.
//
// # Confidence bands
//
// [ClassifyConfidence] uses the maximum probability in the distribution,
// independent of the resolved label. Lower edges are exclusive:
//
//	max > 0.85  VERY HIGH
//	max > 0.70  HIGH
//	max > 0.55  MODERATE
//	otherwise   LOW
//
// # Factors
//
// [Explain] ranks per-feature importances in the fixed order of
// [FeatureNames] and returns the top three. Missing or malformed importances
// produce the single fallback factor "Environmental Conditions" together with
// the reason, so callers can log it without failing the prediction.
//
// # Persistence
//
// Every decision yields one [PredictionRecord] (probability rounded to two
// decimals) and, only for HIGH, one [AlertRecord]. Both are append-only and
// share a correlation id generated at decision time.
package domain
