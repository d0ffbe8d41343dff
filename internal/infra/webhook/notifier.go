package webhook

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

	"github.com/originmark/originmarkd/internal/domain"
)

const signatureHeader = "X-OriginMark-Signature"

// Target is one webhook destination. Kind selects the payload shape:
// "slack" and "discord" get their chat formats, anything else receives
// the raw event JSON. Generic targets with a secret get an HMAC-SHA256
// signature header over the body.
type Target struct {
	URL    string
	Kind   string
	Secret string
}

// Notifier delivers events to the configured targets. Delivery is
// asynchronous and best-effort: failures are logged, never surfaced to
// the request that triggered them.
type Notifier struct {
	targets []Target
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

func NewNotifier(targets []Target, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		targets: targets,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

func (n *Notifier) Notify(_ context.Context, event string, payload map[string]any) {
	if len(n.targets) == 0 {
		return
	}
	for _, target := range n.targets {
		go n.deliver(target, event, payload)
	}
}

func (n *Notifier) deliver(target Target, event string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	body, contentType, err := encodePayload(target.Kind, event, payload)
	if err != nil {
		n.logger.Error("webhook payload encoding failed", "event", event, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("webhook request failed", "event", event, "error", err)
		return
	}
	req.Header.Set("Content-Type", contentType)
	if target.Secret != "" {
		req.Header.Set(signatureHeader, Sign(target.Secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", "event", event, "url", target.URL, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook delivery rejected", "event", event, "url", target.URL, "status", resp.StatusCode)
	}
}

// Sign returns the hex HMAC-SHA256 of the body under the secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

func encodePayload(kind, event string, payload map[string]any) ([]byte, string, error) {
	switch kind {
	case "slack":
		body, err := json.Marshal(map[string]any{
			"text": summarize(event, payload),
		})
		return body, "application/json", err
	case "discord":
		body, err := json.Marshal(map[string]any{
			"content": summarize(event, payload),
		})
		return body, "application/json", err
	default:
		body, err := json.Marshal(map[string]any{
			"event": event,
			"data":  payload,
		})
		return body, "application/json", err
	}
}

func summarize(event string, payload map[string]any) string {
	switch event {
	case "signature.created":
		return fmt.Sprintf("New signature by %v (%v)", payload["author"], payload["content_hash"])
	case "document.completed":
		return fmt.Sprintf("Document %v collected all required signatures", payload["document_id"])
	default:
		return fmt.Sprintf("OriginMark event: %s", event)
	}
}

var _ domain.Notifier = (*Notifier)(nil)
