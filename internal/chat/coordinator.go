// Package chat routes chat messages either to a hosted language model
// (stateless, history supplied by the caller) or to a workflow webhook
// (session-bound, history persisted).
package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/events"
	"github.com/dohr-michael/todoia/internal/sessions"
)

var ErrMissingMessage = apperr.Validation("message is required")

const assistantPrompt = `You are the virtual assistant of todoia, a smart task manager.

You help users to:
1. understand how to use todoia;
2. create and manage tasks efficiently;
3. get the most out of the AI features;
4. solve questions about the system.

About the application:
- tasks have a title, an optional markdown description and a completion flag;
- the board lists tasks newest first and supports create, edit, complete and delete;
- an AI helper drafts or improves a task description from its title;
- a chat surface is connected to an automation workflow with persistent history.

Be friendly and helpful, answer in the user's language, give practical
examples, keep answers concise and be honest when you do not know something.`

// ModelSource resolves a named chat model.
type ModelSource interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// Turn is one prior exchange of a stateless conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Reply is what a chat surface renders.
type Reply struct {
	Response string `json:"response"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Coordinator is the entry point for both chat backends.
type Coordinator struct {
	models      ModelSource
	modelName   string
	maxTokens   int
	temperature float32
	webhook     *Webhook
	history     sessions.Store
	bus         *events.Bus
}

// Deps groups the collaborators of a Coordinator. Models, Webhook and Bus
// may be nil.
type Deps struct {
	Models  ModelSource
	Webhook *Webhook
	History sessions.Store
	Bus     *events.Bus
}

func NewCoordinator(cfg config.ChatConfig, deps Deps) *Coordinator {
	c := &Coordinator{
		models:      deps.Models,
		modelName:   cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		webhook:     deps.Webhook,
		history:     deps.History,
		bus:         deps.Bus,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 500
	}
	if c.temperature == 0 {
		c.temperature = 0.7
	}
	return c
}

// WebhookConfigured reports whether session-bound chat is available.
func (c *Coordinator) WebhookConfigured() bool {
	return c.webhook != nil
}

// Ask answers message with the hosted model, given the caller's history.
// Whenever the model cannot produce an answer a canned reply is returned
// with Fallback set; no error ever reaches the caller.
func (c *Coordinator) Ask(ctx context.Context, message string, history []Turn) Reply {
	if c.models == nil {
		return fallback(message, "no model source")
	}
	m, err := c.models.Get(ctx, c.modelName)
	if err != nil {
		slog.Warn("chat assistant: model not configured", "error", err)
		return fallback(message, "not configured")
	}

	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(assistantPrompt))
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if t.Role == "assistant" {
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		} else {
			msgs = append(msgs, schema.UserMessage(t.Content))
		}
	}
	msgs = append(msgs, schema.UserMessage(message))

	resp, err := m.Generate(ctx, msgs,
		model.WithMaxTokens(c.maxTokens),
		model.WithTemperature(c.temperature),
	)
	if err != nil {
		slog.Warn("chat assistant: model call failed", "error", err)
		return fallback(message, "model error")
	}
	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Content)
	}
	if text == "" {
		return fallback(message, "empty response")
	}
	return Reply{Response: text}
}

func fallback(message, reason string) Reply {
	slog.Debug("chat assistant fallback", "reason", reason)
	return Reply{Response: FallbackReply(message), Fallback: true}
}

// Forward relays message to the webhook without recording anything.
func (c *Coordinator) Forward(ctx context.Context, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrMissingMessage
	}
	out, err := c.webhook.Send(ctx, message)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Response: out}, nil
}

// Send is the session-bound exchange: the human message is recorded, sent
// to the webhook, and the reply is recorded too.
func (c *Coordinator) Send(ctx context.Context, sessionID, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrMissingMessage
	}
	if c.webhook == nil {
		return Reply{}, ErrWebhookNotConfigured
	}
	if err := c.Record(ctx, sessionID, sessions.Message{Type: sessions.TypeHuman, Content: message}); err != nil {
		return Reply{}, err
	}

	out, err := c.webhook.Send(ctx, message)
	if err != nil {
		return Reply{}, err
	}

	if err := c.Record(ctx, sessionID, sessions.Message{
		Type:             sessions.TypeAI,
		Content:          out,
		ResponseMetadata: map[string]any{"source": "webhook"},
	}); err != nil {
		return Reply{}, err
	}
	return Reply{Response: out}, nil
}

// Record appends a message to a session and announces it to the session's
// owner. Session ids are owner ids.
func (c *Coordinator) Record(ctx context.Context, sessionID string, msg sessions.Message) error {
	if sessionID == "" {
		return apperr.Validation("session_id is required")
	}
	if !msg.Type.Valid() {
		return apperr.Validation("message_type must be human or ai")
	}
	saved, err := c.history.Append(ctx, sessionID, msg)
	if err != nil {
		slog.Error("chat history append failed", "session_id", sessionID, "error", err)
		return apperr.Store(err)
	}
	if c.bus != nil {
		c.bus.Publish(events.NewTypedEvent(events.SourceChat, sessionID, events.ChatMessagePayload{
			SessionID: sessionID,
			Type:      string(saved.Type),
			Content:   saved.Content,
		}))
	}
	return nil
}

// History returns the session's messages in order.
func (c *Coordinator) History(ctx context.Context, sessionID string) ([]sessions.Message, error) {
	msgs, err := c.history.Load(ctx, sessionID)
	if err != nil {
		slog.Error("chat history load failed", "session_id", sessionID, "error", err)
		return nil, apperr.Store(err)
	}
	return msgs, nil
}

// Clear deletes the whole session history.
func (c *Coordinator) Clear(ctx context.Context, sessionID string) error {
	n, err := c.history.Clear(ctx, sessionID)
	if err != nil {
		slog.Error("chat history clear failed", "session_id", sessionID, "error", err)
		return apperr.Store(err)
	}
	slog.Info("chat history cleared", "session_id", sessionID, "messages", n)
	return nil
}

// Stats counts the session's messages.
func (c *Coordinator) Stats(ctx context.Context, sessionID string) (sessions.Stats, error) {
	st, err := c.history.Stats(ctx, sessionID)
	if err != nil {
		slog.Error("chat stats failed", "session_id", sessionID, "error", err)
		return st, apperr.Store(err)
	}
	return st, nil
}
