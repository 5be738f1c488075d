package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cardfraud/inference-api/internal/card"
	"cardfraud/inference-api/internal/domain"
	"cardfraud/inference-api/internal/metrics"
	"cardfraud/inference-api/internal/scoring"
	"cardfraud/inference-api/internal/webhook"
)

const maxBodyBytes = 1 << 16

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	engine   *scoring.Engine
	notifier *webhook.Notifier
	metrics  *metrics.Metrics
}

// NewHandler creates a Handler wired to the given dependencies.
func NewHandler(e *scoring.Engine, n *webhook.Notifier, m *metrics.Metrics) *Handler {
	return &Handler{engine: e, notifier: n, metrics: m}
}

// predictRequest uses pointers so absent fields can be told apart from zero.
type predictRequest struct {
	CardNumber *string  `json:"card_number"`
	Amount     *float64 `json:"amount"`
	Time       *float64 `json:"time"`
}

// ─── POST /predict ────────────────────────────────────────────────────────────

// Predict scores one transaction and answers with the flat verdict object.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body predictRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.reject(w, codeInvalidJSON, "request body must be valid JSON")
		return
	}
	if msg := validatePredictRequest(&body); msg != "" {
		h.reject(w, codeValidationError, msg)
		return
	}

	req := &domain.TransactionRequest{
		CardNumber: *body.CardNumber,
		Amount:     *body.Amount,
		Time:       body.Time,
	}

	start := time.Now()
	verdict, err := h.engine.Predict(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMissingFeature):
		h.reject(w, codeValidationError, err.Error())
		return
	case errors.Is(err, domain.ErrMalformedInput):
		h.reject(w, codeMalformedCard, err.Error())
		return
	case errors.Is(err, context.Canceled):
		slog.Info("predict: client went away", "card", card.Mask(req.CardNumber))
		return
	default:
		h.metrics.ObserveFailure()
		slog.Error("predict: scoring failed", "card", card.Mask(req.CardNumber), "error", err)
		internalError(w)
		return
	}

	h.metrics.ObserveVerdict(verdict, time.Since(start))
	h.notifier.NotifyAsync(req, verdict)
	writeJSON(w, http.StatusOK, verdict)
}

// ─── GET /api/v1/model ────────────────────────────────────────────────────────

// ModelInfo describes the loaded artifacts and decision policy.
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	ok(w, h.engine.Info())
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) reject(w http.ResponseWriter, code, message string) {
	h.metrics.ObserveRejection(code)
	badRequest(w, code, message)
}

// validatePredictRequest checks presence only; format rules for the card
// number belong to the engine.
func validatePredictRequest(req *predictRequest) string {
	var missing []string
	if req.CardNumber == nil {
		missing = append(missing, "card_number")
	}
	if req.Amount == nil {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return "missing required fields: " + strings.Join(missing, ", ")
	}
	return ""
}
