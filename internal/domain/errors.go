package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput marks a request the pipeline refuses before any
	// numeric work: a card number with non-digit characters or a length
	// outside 13-19, or a missing required feature.
	ErrMalformedInput = errors.New("malformed input")

	// ErrMissingFeature marks a request that omits a field the loaded
	// artifacts need. It is also an ErrMalformedInput.
	ErrMissingFeature = fmt.Errorf("%w: missing feature", ErrMalformedInput)

	// ErrShapeMismatch marks a feature vector that does not fit the
	// classifier's expected input.
	ErrShapeMismatch = errors.New("feature vector shape mismatch")

	// ErrArtifactLoad marks a missing or corrupt model/scaler artifact.
	ErrArtifactLoad = errors.New("artifact load failure")
)
