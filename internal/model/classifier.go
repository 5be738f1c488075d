// Package model holds the fitted artifacts the inference path consumes: the
// feature scaler and the binary fraud classifier.
//
// Artifacts are produced offline and loaded once at startup (see artifact.go).
// Every type here is immutable after construction, so a single instance is
// shared by all concurrent requests without locking.
package model

import (
	"fmt"
	"math"

	"cardfraud/inference-api/internal/domain"
)

// Supported classifier kinds.
const (
	KindLogisticRegression = "logistic_regression"
	KindRandomForest       = "random_forest"
	KindGradientBoosting   = "gradient_boosting"
)

// Classifier is a fitted binary classifier.
type Classifier interface {
	// Predict returns the hard fraud label and the positive-class
	// probability. It fails with domain.ErrShapeMismatch when x does not
	// fit the model's input.
	Predict(x []float64) (label bool, probability float64, err error)
	NumFeatures() int
	Kind() string
	Version() string
}

type meta struct {
	kind      string
	nFeatures int
	version   string
}

func (m meta) NumFeatures() int { return m.nFeatures }
func (m meta) Kind() string     { return m.kind }
func (m meta) Version() string  { return m.version }

func (m meta) checkShape(x []float64) error {
	if len(x) != m.nFeatures {
		return fmt.Errorf("%w: %s expects %d features, got %d", domain.ErrShapeMismatch, m.kind, m.nFeatures, len(x))
	}
	for i, v := range x {
		if !finite(v) {
			return fmt.Errorf("%w: feature %d is not a finite number", domain.ErrShapeMismatch, i)
		}
	}
	return nil
}

// ─── Logistic regression ─────────────────────────────────────────────────────

// LogisticRegression scores p = sigmoid(w·x + b).
type LogisticRegression struct {
	meta
	coef      []float64
	intercept float64
	threshold float64
}

// NewLogisticRegression builds a logistic regression model. The label is
// positive when p > threshold.
func NewLogisticRegression(coef []float64, intercept, threshold float64, version string) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("logistic regression has no coefficients")
	}
	for i, c := range coef {
		if !finite(c) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if !finite(intercept) {
		return nil, fmt.Errorf("intercept is not finite")
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be in (0,1), got %v", threshold)
	}
	return &LogisticRegression{
		meta:      meta{kind: KindLogisticRegression, nFeatures: len(coef), version: version},
		coef:      append([]float64(nil), coef...),
		intercept: intercept,
		threshold: threshold,
	}, nil
}

// Predict implements Classifier.
func (m *LogisticRegression) Predict(x []float64) (bool, float64, error) {
	if err := m.checkShape(x); err != nil {
		return false, 0, err
	}
	z := m.intercept
	for i, w := range m.coef {
		z += w * x[i]
	}
	p := sigmoid(z)
	return p > m.threshold, p, nil
}

// ─── Tree ensembles ──────────────────────────────────────────────────────────

// Tree is a binary decision tree in flat array form. Node 0 is the root.
// A node is a leaf when Left[i] == -1; children always have a larger index
// than their parent.
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("tree node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		if t.Left[i] == -1 {
			if t.Right[i] != -1 {
				return fmt.Errorf("node %d has a right child but no left child", i)
			}
			if !finite(t.Value[i]) {
				return fmt.Errorf("leaf %d value is not finite", i)
			}
			continue
		}
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return fmt.Errorf("node %d has out-of-order children", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d, model has %d", i, t.Feature[i], nFeatures)
		}
		if !finite(t.Threshold[i]) {
			return fmt.Errorf("node %d threshold is not finite", i)
		}
	}
	return nil
}

// leaf walks the tree for x. strict selects x < threshold (gradient
// boosting) over x <= threshold (random forest) for the left branch.
func (t *Tree) leaf(x []float64, strict bool) float64 {
	node := 0
	for t.Left[node] != -1 {
		v, thr := x[t.Feature[node]], t.Threshold[node]
		if v < thr || (!strict && v == thr) {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return t.Value[node]
}

// TreeEnsemble is either a random forest (leaf values are positive-class
// probabilities, averaged) or a gradient-boosted ensemble (leaf values are
// log-odds contributions, summed onto baseScore).
type TreeEnsemble struct {
	meta
	trees     []Tree
	baseScore float64
}

// NewRandomForest builds a random forest classifier.
func NewRandomForest(nFeatures int, trees []Tree, version string) (*TreeEnsemble, error) {
	e, err := newEnsemble(KindRandomForest, nFeatures, trees, 0, version)
	if err != nil {
		return nil, err
	}
	for ti := range e.trees {
		t := &e.trees[ti]
		for i := range t.Value {
			if t.Left[i] == -1 && (t.Value[i] < 0 || t.Value[i] > 1) {
				return nil, fmt.Errorf("tree %d leaf %d probability %v outside [0,1]", ti, i, t.Value[i])
			}
		}
	}
	return e, nil
}

// NewGradientBoosting builds a gradient-boosted classifier. baseScore is
// the initial margin in log-odds.
func NewGradientBoosting(nFeatures int, trees []Tree, baseScore float64, version string) (*TreeEnsemble, error) {
	if !finite(baseScore) {
		return nil, fmt.Errorf("base score is not finite")
	}
	return newEnsemble(KindGradientBoosting, nFeatures, trees, baseScore, version)
}

func newEnsemble(kind string, nFeatures int, trees []Tree, baseScore float64, version string) (*TreeEnsemble, error) {
	if nFeatures <= 0 {
		return nil, fmt.Errorf("n_features must be positive, got %d", nFeatures)
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("%s has no trees", kind)
	}
	for i := range trees {
		if err := trees[i].validate(nFeatures); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &TreeEnsemble{
		meta:      meta{kind: kind, nFeatures: nFeatures, version: version},
		trees:     append([]Tree(nil), trees...),
		baseScore: baseScore,
	}, nil
}

// Predict implements Classifier.
func (m *TreeEnsemble) Predict(x []float64) (bool, float64, error) {
	if err := m.checkShape(x); err != nil {
		return false, 0, err
	}

	var p float64
	switch m.kind {
	case KindRandomForest:
		sum := 0.0
		for i := range m.trees {
			sum += m.trees[i].leaf(x, false)
		}
		p = sum / float64(len(m.trees))
	default:
		margin := m.baseScore
		for i := range m.trees {
			margin += m.trees[i].leaf(x, true)
		}
		p = sigmoid(margin)
	}
	return p > 0.5, p, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
