package models

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/todoia/internal/config"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// NewOllama creates a chat model backed by a local Ollama server.
func NewOllama(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	timeout := 300 * time.Second
	if cfg.Timeout.Duration() > 0 {
		timeout = cfg.Timeout.Duration()
	}

	opts := &einoollama.Options{NumPredict: cfg.MaxTokens}
	if v, ok := optionFloat(cfg.Options, "temperature"); ok {
		opts.Temperature = float32(v)
	}
	if v, ok := optionFloat(cfg.Options, "num_ctx"); ok {
		opts.NumCtx = int(v)
	}
	if v, ok := optionFloat(cfg.Options, "top_p"); ok {
		opts.TopP = float32(v)
	}

	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: timeout,
		Options: opts,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: &ollamaTransport{inner: http.DefaultTransport, provider: "ollama"},
		},
	})
}

// ollamaTransport turns transport failures and non-JSON answers (a reverse
// proxy's "no available server" page) into ErrModelUnavailable.
type ollamaTransport struct {
	inner    http.RoundTripper
	provider string
}

func (t *ollamaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, &ErrModelUnavailable{Provider: t.provider, Cause: err}
	}

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || (ct != "" && !strings.Contains(ct, "json")) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &ErrModelUnavailable{
			Provider: t.provider,
			Body:     strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}
