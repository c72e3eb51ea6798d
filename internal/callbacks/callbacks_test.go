package callbacks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/events"
)

func TestTruncatePayload_Short(t *testing.T) {
	result := truncatePayload("hello", 100)
	if result != "hello" {
		t.Fatalf("expected %q, got %q", "hello", result)
	}
}

func TestTruncatePayload_Exact(t *testing.T) {
	s := strings.Repeat("a", 50)
	result := truncatePayload(s, 50)
	if result != s {
		t.Fatalf("expected original string (len %d), got len %d", len(s), len(result))
	}
}

func TestTruncatePayload_Long(t *testing.T) {
	s := strings.Repeat("x", 200)
	result := truncatePayload(s, 100)
	if len(result) != 100+len("... (truncated)") {
		t.Fatalf("expected truncated length %d, got %d", 100+len("... (truncated)"), len(result))
	}
	if !strings.HasSuffix(result, "... (truncated)") {
		t.Fatalf("expected suffix '... (truncated)', got %q", result[len(result)-20:])
	}
	if result[:100] != strings.Repeat("x", 100) {
		t.Fatal("prefix should be first 100 chars of original")
	}
}

func TestTruncatePayload_ZeroMax(t *testing.T) {
	s := "hello world"
	result := truncatePayload(s, 0)
	if result != s {
		t.Fatalf("expected original string when maxLen=0, got %q", result)
	}
}

func TestModelHandler_PublishesPhases(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsubscribe := bus.SubscribeChan(8, events.EventModelCall)
	defer unsubscribe()

	ctx := auth.WithIdentity(context.Background(), &auth.Identity{ID: "user-1"})
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      "openai",
		Component: components.ComponentOfChatModel,
	}, NewModelHandler(bus))

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: []*schema.Message{schema.UserMessage("hi")},
		Config:   &model.Config{Model: "gpt-4o-mini"},
	})
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    schema.AssistantMessage("hello", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 5},
	})

	var got []events.ModelCallPayload
	for len(got) < 2 {
		select {
		case e := <-ch:
			if e.Owner != "user-1" {
				t.Fatalf("owner = %q", e.Owner)
			}
			p, ok := events.ExtractPayload[events.ModelCallPayload](e)
			if !ok {
				t.Fatalf("unexpected payload %v", e.Payload)
			}
			got = append(got, p)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %d events", len(got))
		}
	}

	if got[0].Phase != events.PhaseRequest || got[0].Messages != 1 || got[0].Model != "gpt-4o-mini" {
		t.Errorf("request = %+v", got[0])
	}
	if got[1].Phase != events.PhaseResponse || got[1].TokensInput != 12 || got[1].TokensOutput != 5 {
		t.Errorf("response = %+v", got[1])
	}
	if got[1].Provider != "openai" {
		t.Errorf("provider = %q", got[1].Provider)
	}
}
