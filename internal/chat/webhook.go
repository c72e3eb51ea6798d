package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dohr-michael/todoia/internal/apperr"
)

var ErrWebhookNotConfigured = apperr.Configuration("chat webhook not configured")

// Webhook forwards a message to the workflow-automation endpoint and returns
// its "output".
type Webhook struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhook returns nil when url is empty.
func NewWebhook(url, token string, timeout time.Duration) *Webhook {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{url: url, token: token, client: &http.Client{Timeout: timeout}}
}

type webhookRequest struct {
	Data struct {
		Message struct {
			Conversation string `json:"conversation"`
		} `json:"message"`
	} `json:"data"`
}

type webhookResponse struct {
	Output string `json:"output"`
}

// Send posts message and returns the webhook's reply. A non-2xx answer
// becomes an Upstream error carrying the same status.
func (w *Webhook) Send(ctx context.Context, message string) (string, error) {
	if w == nil {
		return "", ErrWebhookNotConfigured
	}

	var body webhookRequest
	body.Data.Message.Conversation = message
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Configuration("invalid chat webhook url")
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Error("chat webhook unreachable", "error", err)
		return "", apperr.Upstream("chat webhook unreachable", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		slog.Error("chat webhook error", "status", resp.StatusCode)
		return "", apperr.Upstream(fmt.Sprintf("webhook error: %d", resp.StatusCode), resp.StatusCode, nil)
	}

	var out webhookResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		slog.Error("chat webhook returned invalid JSON", "error", err)
		return "", apperr.Upstream("invalid webhook response", 0, err)
	}
	if strings.TrimSpace(out.Output) == "" {
		slog.Error("chat webhook response has no output")
		return "", apperr.Upstream("invalid webhook response", 0, nil)
	}
	return out.Output, nil
}
