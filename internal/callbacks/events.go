// Package callbacks provides Eino callback handlers that bridge model calls
// to the event bus.
package callbacks

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	ub "github.com/cloudwego/eino/utils/callbacks"

	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/events"
)

const maxErrorLen = 500

// NewModelHandler creates a callback handler that publishes a model.call
// event for each phase of a chat model call. Events are scoped to the
// identity carried by the call's context, if any.
func NewModelHandler(bus *events.Bus) callbacks.Handler {
	publish := func(ctx context.Context, payload events.ModelCallPayload) {
		bus.Publish(events.NewTypedEvent(events.SourceModels, auth.OwnerFrom(ctx), payload))
	}

	handler := &ub.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *callbacks.RunInfo, input *model.CallbackInput) context.Context {
			payload := events.ModelCallPayload{Phase: events.PhaseRequest, Provider: providerName(info)}
			if input != nil {
				payload.Messages = len(input.Messages)
				if input.Config != nil {
					payload.Model = input.Config.Model
				}
			}
			publish(ctx, payload)
			return ctx
		},

		OnEnd: func(ctx context.Context, info *callbacks.RunInfo, output *model.CallbackOutput) context.Context {
			payload := events.ModelCallPayload{Phase: events.PhaseResponse, Provider: providerName(info)}
			if output != nil {
				if output.Config != nil {
					payload.Model = output.Config.Model
				}
				payload.TokensInput, payload.TokensOutput = tokenUsage(output)
			}
			publish(ctx, payload)
			return ctx
		},

		OnError: func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			publish(ctx, events.ModelCallPayload{
				Phase:    events.PhaseError,
				Provider: providerName(info),
				Error:    truncatePayload(err.Error(), maxErrorLen),
			})
			return ctx
		},
	}

	return ub.NewHandlerHelper().
		ChatModel(handler).
		Handler()
}

func providerName(info *callbacks.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}

// tokenUsage prefers the callback's own usage and falls back to the
// response metadata.
func tokenUsage(output *model.CallbackOutput) (input, completion int) {
	if u := output.TokenUsage; u != nil {
		return u.PromptTokens, u.CompletionTokens
	}
	if output.Message != nil && output.Message.ResponseMeta != nil && output.Message.ResponseMeta.Usage != nil {
		u := output.Message.ResponseMeta.Usage
		return u.PromptTokens, u.CompletionTokens
	}
	return 0, 0
}

func truncatePayload(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
