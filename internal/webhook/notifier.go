// Package webhook delivers fraud alerts to statically configured URLs.
//
// Deliveries run in their own goroutines so they never delay the prediction
// response. Failures are logged and counted, never retried.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cardfraud/inference-api/internal/card"
	"cardfraud/inference-api/internal/domain"
)

const eventFraudVerdict = "fraud_verdict"

// Recorder receives the outcome of each delivery ("delivered" or "failed").
type Recorder interface {
	ObserveAlert(result string)
}

// Notifier posts an alert for every fraudulent verdict to each URL.
type Notifier struct {
	urls    []string
	timeout time.Duration
	client  *http.Client
	rec     Recorder
	wg      sync.WaitGroup
}

// New returns a Notifier. With no URLs it is a no-op; rec may be nil.
func New(urls []string, timeout time.Duration, rec Recorder) *Notifier {
	return &Notifier{
		urls:    append([]string(nil), urls...),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		rec:     rec,
	}
}

// NotifyAsync sends an alert in the background when v is fraudulent. The
// card number is masked before it leaves the process.
func (n *Notifier) NotifyAsync(req *domain.TransactionRequest, v *domain.Verdict) {
	if n == nil || len(n.urls) == 0 || !v.IsFraudulent {
		return
	}
	payload := domain.AlertPayload{
		Event:       eventFraudVerdict,
		TriggeredAt: time.Now().UTC(),
		Card:        card.Mask(req.CardNumber),
		Amount:      req.Amount,
		Verdict:     *v,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("webhook: failed to marshal payload", "error", err)
		return
	}
	for _, url := range n.urls {
		n.wg.Add(1)
		go func(url string) {
			defer n.wg.Done()
			n.send(url, payload.Card, body)
		}(url)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) send(url, masked string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.Error("webhook: failed to build request", "url", url, "error", err)
		n.record("failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Fraud-Event", eventFraudVerdict)

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("webhook: delivery failed", "url", url, "error", err)
		n.record("failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("webhook: rejected", "url", url, "status", resp.StatusCode, "card", masked)
		n.record("failed")
		return
	}
	slog.Info("webhook: delivered", "url", url, "status", resp.StatusCode, "card", masked)
	n.record("delivered")
}

func (n *Notifier) record(result string) {
	if n.rec != nil {
		n.rec.ObserveAlert(result)
	}
}
