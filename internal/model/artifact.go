package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"cardfraud/inference-api/internal/domain"
)

// ClassifierArtifact is the on-disk JSON form of a fitted classifier.
// Only the fields relevant to Kind are populated.
type ClassifierArtifact struct {
	Kind      string `json:"kind"`
	NFeatures int    `json:"n_features"`

	// logistic_regression
	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`
	Threshold float64   `json:"threshold,omitempty"` // 0 means 0.5

	// random_forest, gradient_boosting
	Trees     []Tree  `json:"trees,omitempty"`
	BaseScore float64 `json:"base_score,omitempty"` // gradient_boosting only
}

// ScalerArtifact is the on-disk JSON form of a fitted StandardScaler.
type ScalerArtifact struct {
	Features []string  `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// LoadClassifier reads and validates the classifier artifact at path.
// All failures wrap domain.ErrArtifactLoad.
func LoadClassifier(path string) (Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read model %s: %w", domain.ErrArtifactLoad, path, err)
	}
	c, err := ParseClassifier(raw)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return c, nil
}

// ParseClassifier decodes a classifier artifact. The model version is a
// name-based UUID of the raw bytes, so the same artifact always reports the
// same version.
func ParseClassifier(raw []byte) (Classifier, error) {
	var a ClassifierArtifact
	if err := decodeStrict(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode classifier: %w", domain.ErrArtifactLoad, err)
	}
	version := Fingerprint(raw)

	var (
		c   Classifier
		err error
	)
	switch a.Kind {
	case KindLogisticRegression:
		if a.NFeatures != 0 && a.NFeatures != len(a.Coef) {
			return nil, fmt.Errorf("%w: n_features %d does not match %d coefficients",
				domain.ErrArtifactLoad, a.NFeatures, len(a.Coef))
		}
		threshold := a.Threshold
		if threshold == 0 {
			threshold = 0.5
		}
		c, err = NewLogisticRegression(a.Coef, a.Intercept, threshold, version)
	case KindRandomForest:
		c, err = NewRandomForest(a.NFeatures, a.Trees, version)
	case KindGradientBoosting:
		c, err = NewGradientBoosting(a.NFeatures, a.Trees, a.BaseScore, version)
	default:
		return nil, fmt.Errorf("%w: unknown classifier kind %q", domain.ErrArtifactLoad, a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrArtifactLoad, err)
	}
	return c, nil
}

// LoadScaler reads and validates the scaler artifact at path.
// All failures wrap domain.ErrArtifactLoad.
func LoadScaler(path string) (*StandardScaler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read scaler %s: %w", domain.ErrArtifactLoad, path, err)
	}
	var a ScalerArtifact
	if err := decodeStrict(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode scaler %s: %w", domain.ErrArtifactLoad, path, err)
	}
	s, err := NewStandardScaler(a.Features, a.Mean, a.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: scaler %s: %w", domain.ErrArtifactLoad, path, err)
	}
	return s, nil
}

// WriteArtifact writes v as indented JSON to path.
func WriteArtifact(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Fingerprint returns a stable identifier for artifact bytes.
func Fingerprint(raw []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, raw).String()
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after artifact")
	}
	return nil
}
