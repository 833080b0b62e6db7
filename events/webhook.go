package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Webhook delivers events to a single HTTP endpoint. Payloads are signed
// with HMAC-SHA256 when a secret is configured:
//
//	X-Pagent-Signature: sha256=<hex>
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhook creates a webhook sink. Pass nil to use a default client with a
// 10s delivery timeout.
func NewWebhook(url, secret string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{url: url, secret: secret, client: client}
}

// Publish delivers the event asynchronously with up to 3 retries.
// Retry intervals: 1s, 5s, 30s.
func (w *Webhook) Publish(event Event) {
	go func() {
		delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := w.deliver(ctx, event)
			cancel()
			if err == nil {
				slog.Debug("webhook delivered",
					"url", w.url,
					"event", event.Type,
					"entity_id", event.EntityID,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", w.url,
				"event", event.Type,
				"entity_id", event.EntityID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", w.url,
			"event", event.Type,
			"entity_id", event.EntityID,
		)
	}()
}

// deliver sends one signed delivery attempt.
func (w *Webhook) deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pagent-Webhook/1.0")

	if w.secret != "" {
		mac := hmac.New(sha256.New, []byte(w.secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Pagent-Signature", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
