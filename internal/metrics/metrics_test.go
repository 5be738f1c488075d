package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"cardfraud/inference-api/internal/domain"
	"cardfraud/inference-api/internal/metrics"
)

func TestObserveVerdict_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveVerdict(&domain.Verdict{IsFraudulent: true, IsValidCard: false, FraudProbability: 0.2}, time.Millisecond)
	m.ObserveVerdict(&domain.Verdict{IsFraudulent: false, IsValidCard: true, FraudProbability: 0.1}, time.Millisecond)
	m.ObserveVerdict(&domain.Verdict{IsFraudulent: false, IsValidCard: true, FraudProbability: 0.1}, time.Millisecond)

	const want = `
# HELP fraud_inference_verdicts_total Scored transactions by outcome and card validity.
# TYPE fraud_inference_verdicts_total counter
fraud_inference_verdicts_total{outcome="fraudulent",valid_card="false"} 1
fraud_inference_verdicts_total{outcome="legitimate",valid_card="true"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "fraud_inference_verdicts_total"); err != nil {
		t.Error(err)
	}
}

func TestObserveRejectionAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRejection("MALFORMED_CARD_NUMBER")
	m.ObserveRejection("MALFORMED_CARD_NUMBER")
	m.ObserveFailure()
	m.ObserveAlert("delivered")

	if n, err := testutil.GatherAndCount(reg, "fraud_inference_rejections_total"); err != nil || n != 1 {
		t.Errorf("rejection series = %d, %v; want 1", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "fraud_inference_failures_total"); err != nil || n != 1 {
		t.Errorf("failure series = %d, %v; want 1", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "fraud_inference_alerts_total"); err != nil || n != 1 {
		t.Errorf("alert series = %d, %v; want 1", n, err)
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "fraud_inference_failures_total 1") {
		t.Errorf("exposition missing failure counter:\n%s", body)
	}
}
