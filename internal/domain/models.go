// Package domain contains all core types used across the application.
// Keeping domain types in one place makes the request/verdict contract easy to reason about.
package domain

import "time"

// ─── Feature layout ──────────────────────────────────────────────────────────

// The classifier was trained on a fixed 30-slot feature space:
// 16 card-digit features, the scaled amount, the scaled time (or a zero
// placeholder) and reserved zero slots.
const (
	FeatureWidth   = 30 // total slots in every feature vector
	CardDigitSlots = 16 // slots 0-15
	AmountSlot     = 16
	TimeSlot       = 17
)

// Card number length bounds after spaces are stripped.
const (
	MinCardDigits = 13
	MaxCardDigits = 19
)

// ─── Risk bands ──────────────────────────────────────────────────────────────

// Risk level labels that correspond to fraud probability bands.
const (
	RiskLow    = "low"    // p < 0.30
	RiskMedium = "medium" // 0.30 <= p < 0.70
	RiskHigh   = "high"   // p >= 0.70
)

// Probability thresholds for the risk bands above.
const (
	ThresholdMedium = 0.30
	ThresholdHigh   = 0.70
)

// ─── Decision policies ───────────────────────────────────────────────────────

// Named presets for combining the model label with the card checksum.
const (
	PolicyModelOrInvalidCard = "model_or_invalid_card" // model says fraud OR Luhn fails
	PolicyModelOnly          = "model_only"            // model label alone; card flag is informational
)

// Scaler modes. ScalerPerRequest reproduces the legacy refit-per-request
// behaviour and must be opted into explicitly.
const (
	ScalerFitted     = "fitted"
	ScalerPerRequest = "per_request"
)

// Scaler feature names as they appear in the scaler artifact.
const (
	FeatureAmount = "amount"
	FeatureTime   = "time"
)

// ─── Core domain types ────────────────────────────────────────────────────────

// TransactionRequest is the payload submitted to POST /predict.
// Time is optional on the wire; it is required only when the loaded scaler
// models time.
type TransactionRequest struct {
	CardNumber string   `json:"card_number"`
	Amount     float64  `json:"amount"`
	Time       *float64 `json:"time,omitempty"` // seconds since midnight
}

// Verdict is the scored result for a single transaction.
// It is derived per request and never persisted.
type Verdict struct {
	IsFraudulent     bool    `json:"is_fraudulent"`
	FraudProbability float64 `json:"fraud_probability"` // 0-1, model's positive-class probability
	IsValidCard      bool    `json:"is_valid_card"`
	Prediction       int     `json:"prediction"` // raw model label, 0 or 1
	RiskLevel        string  `json:"risk_level"`
	ModelVersion     string  `json:"model_version"`
}

// ModelInfo describes the loaded artifacts for the model-info endpoint.
type ModelInfo struct {
	Kind           string   `json:"kind"`
	Version        string   `json:"version"`
	NumFeatures    int      `json:"n_features"`
	ScalerMode     string   `json:"scaler_mode"`
	ScalerFeatures []string `json:"scaler_features"`
	Policy         string   `json:"policy"`
}

// ─── Alerts ───────────────────────────────────────────────────────────────────

// AlertPayload is the body sent to configured webhook URLs when a verdict
// is fraudulent. The card number is always masked.
type AlertPayload struct {
	Event       string    `json:"event"` // always "fraud_verdict"
	TriggeredAt time.Time `json:"triggered_at"`
	Card        string    `json:"card"`
	Amount      float64   `json:"amount"`
	Verdict     Verdict   `json:"verdict"`
}
