// Package scoring implements the request-time fraud inference pipeline.
//
// Pipeline, strictly sequential per request:
//  1. Format pre-check of the card number. Malformed input short-circuits
//     here, before any numeric work.
//  2. Luhn checksum, kept as a separate signal.
//  3. Scale amount (and time, when modelled) with the fitted scaler.
//  4. Encode the 30-slot feature vector.
//  5. Classify.
//  6. Combine model label and card validity through the decision Policy.
//
// The Engine is built once at startup and holds only read-only state, so it
// is shared by every request without locking.
package scoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cardfraud/inference-api/internal/card"
	"cardfraud/inference-api/internal/domain"
	"cardfraud/inference-api/internal/features"
	"cardfraud/inference-api/internal/model"
)

const tracerName = "cardfraud/inference-api/scoring"

// Scaler is the fitted transform applied to the raw numeric features.
type Scaler interface {
	Scale(amount, t float64) (scaledAmount float64, scaledTime *float64)
	ModelsTime() bool
	Features() []string
	Mode() string
}

// Engine is the immutable inference service.
type Engine struct {
	scaler     Scaler
	classifier model.Classifier
	policy     *Policy
	tracer     trace.Tracer
}

// New creates an Engine from loaded artifacts and a compiled policy.
func New(s Scaler, c model.Classifier, p *Policy) *Engine {
	return &Engine{
		scaler:     s,
		classifier: c,
		policy:     p,
		tracer:     otel.Tracer(tracerName),
	}
}

// ─── Public API ───────────────────────────────────────────────────────────────

// Predict scores a single transaction.
//
// Errors wrap domain.ErrMalformedInput (client error, the classifier is never
// invoked), domain.ErrShapeMismatch, or the context error.
func (e *Engine) Predict(ctx context.Context, req *domain.TransactionRequest) (*domain.Verdict, error) {
	ctx, span := e.tracer.Start(ctx, "scoring.Predict")
	defer span.End()

	if err := card.CheckFormat(req.CardNumber); err != nil {
		span.SetStatus(codes.Error, "malformed card number")
		return nil, err
	}
	if e.scaler.ModelsTime() && req.Time == nil {
		span.SetStatus(codes.Error, "missing time")
		return nil, fmt.Errorf("%w: time is required by the loaded scaler", domain.ErrMissingFeature)
	}
	validCard := card.Validate(req.CardNumber)

	var rawTime float64
	if req.Time != nil {
		rawTime = *req.Time
	}
	scaledAmount, scaledTime := e.scaler.Scale(req.Amount, rawTime)
	vector := features.Encode(req.CardNumber, scaledAmount, scaledTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	label, probability, err := e.classifier.Predict(vector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classifier failed")
		return nil, fmt.Errorf("predict: %w", err)
	}
	fraudulent, err := e.policy.Decide(label, validCard, probability)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "policy failed")
		return nil, err
	}

	prediction := 0
	if label {
		prediction = 1
	}
	span.SetAttributes(
		attribute.Bool("card.valid", validCard),
		attribute.Bool("model.label", label),
		attribute.Float64("model.probability", probability),
		attribute.Bool("verdict.fraudulent", fraudulent),
	)

	return &domain.Verdict{
		IsFraudulent:     fraudulent,
		FraudProbability: probability,
		IsValidCard:      validCard,
		Prediction:       prediction,
		RiskLevel:        RiskLevel(probability),
		ModelVersion:     e.classifier.Version(),
	}, nil
}

// Info describes the loaded artifacts and policy.
func (e *Engine) Info() domain.ModelInfo {
	return domain.ModelInfo{
		Kind:           e.classifier.Kind(),
		Version:        e.classifier.Version(),
		NumFeatures:    e.classifier.NumFeatures(),
		ScalerMode:     e.scaler.Mode(),
		ScalerFeatures: e.scaler.Features(),
		Policy:         e.policy.Name(),
	}
}

// RiskLevel returns the risk band for a fraud probability.
func RiskLevel(p float64) string {
	switch {
	case p < domain.ThresholdMedium:
		return domain.RiskLow
	case p < domain.ThresholdHigh:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}
