package model

import (
	"fmt"
	"math"

	"cardfraud/inference-api/internal/domain"
)

// StandardScaler applies a standardization learned offline:
// scaled = (x - mean) / scale. Its parameters are fixed at construction and
// it is safe for concurrent use.
type StandardScaler struct {
	features []string
	mean     []float64
	scale    []float64
	timeIdx  int // -1 when time is not modelled
}

// NewStandardScaler validates the fitted parameters and returns a scaler.
// features must start with "amount" and may be followed by "time".
// A zero scale is treated as 1, matching how a constant training column is
// standardized.
func NewStandardScaler(features []string, mean, scale []float64) (*StandardScaler, error) {
	switch {
	case len(features) == 0:
		return nil, fmt.Errorf("scaler has no features")
	case len(features) > 2:
		return nil, fmt.Errorf("scaler has %d features, at most 2 supported", len(features))
	case len(mean) != len(features) || len(scale) != len(features):
		return nil, fmt.Errorf("scaler parameter lengths differ: features=%d mean=%d scale=%d",
			len(features), len(mean), len(scale))
	case features[0] != domain.FeatureAmount:
		return nil, fmt.Errorf("first scaler feature must be %q, got %q", domain.FeatureAmount, features[0])
	}

	s := &StandardScaler{
		features: append([]string(nil), features...),
		mean:     append([]float64(nil), mean...),
		scale:    make([]float64, len(scale)),
		timeIdx:  -1,
	}
	if len(features) == 2 {
		if features[1] != domain.FeatureTime {
			return nil, fmt.Errorf("second scaler feature must be %q, got %q", domain.FeatureTime, features[1])
		}
		s.timeIdx = 1
	}

	for i := range features {
		if !finite(mean[i]) || !finite(scale[i]) {
			return nil, fmt.Errorf("scaler parameters for %q are not finite", features[i])
		}
		if scale[i] < 0 {
			return nil, fmt.Errorf("scaler scale for %q is negative", features[i])
		}
		s.scale[i] = scale[i]
		if s.scale[i] == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

// Scale standardizes amount and, when modelled, time. The returned time is
// nil when the scaler does not model time.
func (s *StandardScaler) Scale(amount, t float64) (float64, *float64) {
	scaledAmount := (amount - s.mean[0]) / s.scale[0]
	if s.timeIdx < 0 {
		return scaledAmount, nil
	}
	scaledTime := (t - s.mean[s.timeIdx]) / s.scale[s.timeIdx]
	return scaledAmount, &scaledTime
}

// ModelsTime reports whether time is one of the scaled features.
func (s *StandardScaler) ModelsTime() bool { return s.timeIdx >= 0 }

// Features returns the scaled feature names in artifact order.
func (s *StandardScaler) Features() []string { return append([]string(nil), s.features...) }

// Mode returns domain.ScalerFitted.
func (s *StandardScaler) Mode() string { return domain.ScalerFitted }

// RefitScaler reproduces the legacy deployment that fitted a fresh scaler on
// each request's own amount. Standardizing a single sample always yields 0,
// so every request loses its amount signal. It exists only behind the
// explicit "per_request" scaler mode.
type RefitScaler struct{}

// Scale fits on the single amount and transforms it, which is always 0.
func (RefitScaler) Scale(amount, _ float64) (float64, *float64) {
	mean := amount
	variance := 0.0
	scale := math.Sqrt(variance)
	if scale == 0 {
		scale = 1
	}
	return (amount - mean) / scale, nil
}

// ModelsTime is always false; the legacy variant scaled amount only.
func (RefitScaler) ModelsTime() bool { return false }

// Features returns ["amount"].
func (RefitScaler) Features() []string { return []string{domain.FeatureAmount} }

// Mode returns domain.ScalerPerRequest.
func (RefitScaler) Mode() string { return domain.ScalerPerRequest }

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
