// Package enhance drafts and improves task descriptions with a hosted
// language model, and tracks one live request per draft field.
package enhance

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/models"
)

var (
	ErrMissingTitle  = apperr.Validation("task title is required")
	ErrNotConfigured = apperr.Configuration("AI model is not configured")
	ErrEmptyResponse = apperr.EmptyResponse("empty AI response")
)

// ModelSource resolves a named chat model. *models.Registry implements it.
type ModelSource interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// Enhancer turns a task title (and optional current description) into a
// how-to description with a single completion call. It never retries.
type Enhancer struct {
	source      ModelSource
	modelName   string
	maxTokens   int
	temperature float32
}

// New creates an Enhancer. cfg.Model selects the provider; empty uses the
// registry default.
func New(source ModelSource, cfg config.EnhanceConfig) *Enhancer {
	e := &Enhancer{
		source:      source,
		modelName:   cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
	if e.maxTokens <= 0 {
		e.maxTokens = 500
	}
	if e.temperature == 0 {
		e.temperature = 0.7
	}
	return e
}

// Improve returns a generated description. The title must be non-empty;
// otherwise no model call is made. Cancellation of ctx aborts the call and
// the context error is returned as is.
func (e *Enhancer) Improve(ctx context.Context, title, currentDescription string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrMissingTitle
	}

	m, err := e.source.Get(ctx, e.modelName)
	if err != nil {
		slog.Error("improve description: configuration error", "model", e.modelName, "error", err)
		return "", ErrNotConfigured
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt(title, currentDescription)),
	}
	resp, err := m.Generate(ctx, msgs,
		model.WithMaxTokens(e.maxTokens),
		model.WithTemperature(e.temperature),
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		err = models.HandleError(err)
		slog.Error("improve description: model call failed", "error", err)
		var unavailable *models.ErrModelUnavailable
		if errors.As(err, &unavailable) {
			return "", apperr.Upstream("AI service unavailable", 0, err)
		}
		return "", apperr.Upstream("AI request failed", 0, err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Content)
	}
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
