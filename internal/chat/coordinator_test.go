package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/events"
	"github.com/dohr-michael/todoia/internal/models"
	"github.com/dohr-michael/todoia/internal/sessions"
	"github.com/dohr-michael/todoia/internal/testutil"
)

type scriptedModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.seen = msgs
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type staticSource struct {
	m   model.BaseChatModel
	err error
}

func (s staticSource) Get(context.Context, string) (model.BaseChatModel, error) { return s.m, s.err }

func TestAskSendsHistory(t *testing.T) {
	m := &scriptedModel{reply: " Sure! "}
	c := NewCoordinator(config.ChatConfig{}, Deps{Models: staticSource{m: m}})

	reply := c.Ask(context.Background(), "and then?", []Turn{
		{Role: "user", Content: "how do I add a task?"},
		{Role: "assistant", Content: "Use the board."},
	})
	if reply.Fallback || reply.Response != "Sure!" {
		t.Fatalf("reply = %+v", reply)
	}
	if len(m.seen) != 4 {
		t.Fatalf("expected system + 2 history + message, got %d", len(m.seen))
	}
	if m.seen[0].Role != schema.System || m.seen[2].Role != schema.Assistant || m.seen[3].Content != "and then?" {
		t.Errorf("unexpected message layout")
	}
}

func TestAskFallsBackWhenModelUnreachable(t *testing.T) {
	m := &scriptedModel{err: &models.ErrModelUnavailable{Provider: "openai", Cause: errors.New("dial tcp: connection refused")}}
	c := NewCoordinator(config.ChatConfig{}, Deps{Models: staticSource{m: m}})

	reply := c.Ask(context.Background(), "oi", nil)
	if !reply.Fallback || reply.Response == "" {
		t.Fatalf("expected canned reply, got %+v", reply)
	}
	if reply.Response != FallbackReply("hello") {
		t.Errorf("expected greeting reply, got %q", reply.Response)
	}
}

func TestAskFallsBackWhenNotConfigured(t *testing.T) {
	c := NewCoordinator(config.ChatConfig{}, Deps{Models: staticSource{err: models.ErrNotConfigured}})
	if r := c.Ask(context.Background(), "help", nil); !r.Fallback || r.Response == "" {
		t.Errorf("reply = %+v", r)
	}

	none := NewCoordinator(config.ChatConfig{}, Deps{})
	if r := none.Ask(context.Background(), "anything", nil); !r.Fallback || r.Response != defaultReply {
		t.Errorf("reply = %+v", r)
	}

	empty := NewCoordinator(config.ChatConfig{}, Deps{Models: staticSource{m: &scriptedModel{reply: "  "}}})
	if r := empty.Ask(context.Background(), "thanks!", nil); !r.Fallback {
		t.Errorf("empty model answer must fall back, got %+v", r)
	}
}

func newWebhookServer(t *testing.T, token string, handler func(msg string) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Data struct {
				Message struct {
					Conversation string `json:"conversation"`
				} `json:"message"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, out := handler(body.Data.Message.Conversation)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendRecordsBothMessages(t *testing.T) {
	srv := newWebhookServer(t, "secret", func(msg string) (int, any) {
		return http.StatusOK, map[string]string{"output": "echo: " + msg}
	})
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(4, events.EventChatMessage)
	defer unsub()

	c := NewCoordinator(config.ChatConfig{}, Deps{
		Webhook: NewWebhook(srv.URL, "secret", time.Second),
		History: sessions.NewSQLiteStore(testutil.NewTestDB(t)),
		Bus:     bus,
	})
	ctx := context.Background()

	reply, err := c.Send(ctx, "user-1", "ping")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Response != "echo: ping" {
		t.Errorf("reply = %+v", reply)
	}

	msgs, err := c.History(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Type != sessions.TypeHuman || msgs[1].Type != sessions.TypeAI {
		t.Fatalf("history = %+v", msgs)
	}

	for i := 0; i < 2; i++ {
		select {
		case e := <-ch:
			if e.Owner != "user-1" {
				t.Errorf("event owner = %q", e.Owner)
			}
		case <-time.After(time.Second):
			t.Fatal("missing chat.message event")
		}
	}

	st, err := c.Stats(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 2 || st.Human != 1 || st.AI != 1 {
		t.Errorf("stats = %+v", st)
	}

	if err := c.Clear(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	msgs, err = c.History(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(msgs))
	}
}

func TestSendPassesThroughUpstreamStatus(t *testing.T) {
	srv := newWebhookServer(t, "", func(string) (int, any) {
		return http.StatusBadGateway, map[string]string{"error": "down"}
	})
	c := NewCoordinator(config.ChatConfig{}, Deps{
		Webhook: NewWebhook(srv.URL, "", time.Second),
		History: sessions.NewSQLiteStore(testutil.NewTestDB(t)),
	})

	_, err := c.Send(context.Background(), "user-1", "ping")
	if apperr.KindOf(err) != apperr.KindUpstream || apperr.StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("expected upstream 502, got %v (%d)", err, apperr.StatusOf(err))
	}
}

func TestForwardRequiresOutput(t *testing.T) {
	srv := newWebhookServer(t, "", func(string) (int, any) {
		return http.StatusOK, map[string]string{"result": "wrong field"}
	})
	c := NewCoordinator(config.ChatConfig{}, Deps{Webhook: NewWebhook(srv.URL, "", time.Second)})

	_, err := c.Forward(context.Background(), "ping")
	if apperr.KindOf(err) != apperr.KindUpstream || apperr.StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected upstream 500, got %v", err)
	}
}

func TestForwardAuthorization(t *testing.T) {
	srv := newWebhookServer(t, "right", func(msg string) (int, any) {
		return http.StatusOK, map[string]string{"output": "ok"}
	})

	bad := NewCoordinator(config.ChatConfig{}, Deps{Webhook: NewWebhook(srv.URL, "wrong", time.Second)})
	if _, err := bad.Forward(context.Background(), "x"); apperr.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("expected passthrough 401, got %v", err)
	}

	good := NewCoordinator(config.ChatConfig{}, Deps{Webhook: NewWebhook(srv.URL, "right", time.Second)})
	reply, err := good.Forward(context.Background(), "x")
	if err != nil || reply.Response != "ok" {
		t.Errorf("reply = %+v, err = %v", reply, err)
	}
}

func TestWebhookNotConfigured(t *testing.T) {
	c := NewCoordinator(config.ChatConfig{}, Deps{
		History: sessions.NewSQLiteStore(testutil.NewTestDB(t)),
	})
	if c.WebhookConfigured() {
		t.Fatal("expected unconfigured webhook")
	}
	if _, err := c.Forward(context.Background(), "hi"); apperr.KindOf(err) != apperr.KindConfiguration {
		t.Errorf("Forward: %v", err)
	}
	if _, err := c.Send(context.Background(), "u", "hi"); apperr.KindOf(err) != apperr.KindConfiguration {
		t.Errorf("Send: %v", err)
	}
	if _, err := c.Send(context.Background(), "u", "  "); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("Send empty: %v", err)
	}
}

func TestRecordValidation(t *testing.T) {
	c := NewCoordinator(config.ChatConfig{}, Deps{History: sessions.NewSQLiteStore(testutil.NewTestDB(t))})
	ctx := context.Background()

	if err := c.Record(ctx, "", sessions.Message{Type: sessions.TypeAI}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty session: %v", err)
	}
	if err := c.Record(ctx, "s", sessions.Message{Type: "robot"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bad type: %v", err)
	}
	if err := c.Record(ctx, "s", sessions.Message{Type: sessions.TypeAI, Content: "from workflow"}); err != nil {
		t.Errorf("valid record: %v", err)
	}
}
