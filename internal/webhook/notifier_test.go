package webhook_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cardfraud/inference-api/internal/domain"
	"cardfraud/inference-api/internal/webhook"
)

type recorder struct {
	mu      sync.Mutex
	results []string
}

func (r *recorder) ObserveAlert(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...)
}

func request() *domain.TransactionRequest {
	return &domain.TransactionRequest{CardNumber: "4532 0151 1283 0367", Amount: 250}
}

func TestNotifyAsync_DeliversMaskedAlert(t *testing.T) {
	var (
		mu  sync.Mutex
		got []domain.AlertPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p domain.AlertPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if r.Header.Get("X-Fraud-Event") != "fraud_verdict" {
			t.Errorf("missing event header")
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rec := &recorder{}
	n := webhook.New([]string{srv.URL, srv.URL + "/second"}, time.Second, rec)
	n.NotifyAsync(request(), &domain.Verdict{IsFraudulent: true, FraudProbability: 0.1})
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(got))
	}
	p := got[0]
	if p.Event != "fraud_verdict" || p.Amount != 250 || !p.Verdict.IsFraudulent {
		t.Errorf("unexpected payload %+v", p)
	}
	if strings.Contains(p.Card, "151128") || !strings.HasPrefix(p.Card, "453201") {
		t.Errorf("card not masked: %q", p.Card)
	}
	if r := rec.snapshot(); len(r) != 2 || r[0] != "delivered" {
		t.Errorf("recorded %v", r)
	}
}

func TestNotifyAsync_SkipsLegitimateVerdicts(t *testing.T) {
	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
	}))
	defer srv.Close()

	n := webhook.New([]string{srv.URL}, time.Second, nil)
	n.NotifyAsync(request(), &domain.Verdict{IsFraudulent: false, IsValidCard: true})
	n.Wait()

	select {
	case <-called:
		t.Error("legitimate verdict must not trigger an alert")
	default:
	}
}

func TestNotifyAsync_RecordsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &recorder{}
	n := webhook.New([]string{srv.URL, "http://127.0.0.1:1/unreachable"}, 500*time.Millisecond, rec)
	n.NotifyAsync(request(), &domain.Verdict{IsFraudulent: true})
	n.Wait()

	r := rec.snapshot()
	if len(r) != 2 || r[0] != "failed" || r[1] != "failed" {
		t.Errorf("recorded %v, want two failures", r)
	}
}

func TestNotifier_NoURLsIsNoop(t *testing.T) {
	n := webhook.New(nil, time.Second, nil)
	n.NotifyAsync(request(), &domain.Verdict{IsFraudulent: true})
	n.Wait()

	var nilNotifier *webhook.Notifier
	nilNotifier.NotifyAsync(request(), &domain.Verdict{IsFraudulent: true})
	nilNotifier.Wait()
}
