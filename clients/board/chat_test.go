package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/chat"
)

// blockingSender waits for release (or cancellation) before answering.
func blockingSender(release <-chan struct{}, started chan<- struct{}) Sender {
	return func(ctx context.Context, message string, _ []chat.Turn) (chat.Reply, error) {
		started <- struct{}{}
		select {
		case <-release:
			return chat.Reply{Response: "re: " + message}, nil
		case <-ctx.Done():
			return chat.Reply{}, ctx.Err()
		}
	}
}

func TestChatSurface_Delivered(t *testing.T) {
	var seen []chat.Turn
	s := NewChatSurface(func(_ context.Context, message string, history []chat.Turn) (chat.Reply, error) {
		seen = history
		return chat.Reply{Response: "hi " + message}, nil
	})
	ctx := context.Background()

	res, err := s.Send(ctx, "one")
	if err != nil || res.State != StateDelivered || res.Reply.Response != "hi one" {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
	if _, err := s.Send(ctx, "two"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(seen) != 2 || seen[0].Role != "user" || seen[1].Content != "hi one" {
		t.Fatalf("second send should carry the first exchange, got %+v", seen)
	}
	if len(s.History()) != 4 || s.State() != StateDelivered {
		t.Fatalf("unexpected history %+v / state %s", s.History(), s.State())
	}
}

func TestChatSurface_EmptyMessage(t *testing.T) {
	s := NewChatSurface(func(context.Context, string, []chat.Turn) (chat.Reply, error) {
		t.Fatal("sender must not be called")
		return chat.Reply{}, nil
	})
	if _, err := s.Send(context.Background(), "  "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if s.State() != StateComposing {
		t.Fatalf("state = %s", s.State())
	}
}

func TestChatSurface_SecondSendWhilePendingIsBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	s := NewChatSurface(blockingSender(release, started))

	done := make(chan Result, 1)
	go func() {
		res, _ := s.Send(context.Background(), "first")
		done <- res
	}()
	<-started
	if s.State() != StatePending {
		t.Fatalf("state = %s, want pending", s.State())
	}

	if _, err := s.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	res := <-done
	if res.State != StateDelivered || res.Reply.Response != "re: first" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(s.History()) != 2 {
		t.Fatalf("rejected send must not reach history: %+v", s.History())
	}
}

func TestChatSurface_Failed(t *testing.T) {
	boom := errors.New("webhook down")
	s := NewChatSurface(func(context.Context, string, []chat.Turn) (chat.Reply, error) {
		return chat.Reply{}, boom
	})

	res, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.State != StateFailed || !errors.Is(res.Err, boom) {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(s.History()) != 0 {
		t.Fatal("failed message must not reach history")
	}
	// A failed message does not block the next one.
	if _, err := s.Send(context.Background(), "again"); err != nil {
		t.Fatalf("Send after failure: %v", err)
	}
}

func TestChatSurface_CancelDiscardsLateReply(t *testing.T) {
	started := make(chan struct{}, 1)
	late := make(chan struct{})
	s := NewChatSurface(func(ctx context.Context, message string, _ []chat.Turn) (chat.Reply, error) {
		started <- struct{}{}
		<-late
		// Answers even though the request was canceled.
		return chat.Reply{Response: "late"}, nil
	})

	done := make(chan Result, 1)
	go func() {
		res, _ := s.Send(context.Background(), "slow")
		done <- res
	}()
	<-started

	if !s.Cancel() {
		t.Fatal("expected pending message to cancel")
	}
	if s.State() != StateCanceled {
		t.Fatalf("state = %s", s.State())
	}
	close(late)

	select {
	case res := <-done:
		if res.State != StateCanceled || res.Reply.Response != "" {
			t.Fatalf("late reply leaked: %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send never settled")
	}
	if len(s.History()) != 0 {
		t.Fatal("canceled message must not reach history")
	}
	if s.Cancel() {
		t.Fatal("nothing should be pending")
	}
}

func TestChatSurface_NewSendAfterCancelIsNotClobbered(t *testing.T) {
	started := make(chan struct{}, 2)
	releaseFirst := make(chan struct{})
	s := NewChatSurface(func(ctx context.Context, message string, _ []chat.Turn) (chat.Reply, error) {
		started <- struct{}{}
		if message == "first" {
			<-releaseFirst
			return chat.Reply{Response: "stale"}, nil
		}
		return chat.Reply{Response: "fresh"}, nil
	})

	firstDone := make(chan Result, 1)
	go func() {
		res, _ := s.Send(context.Background(), "first")
		firstDone <- res
	}()
	<-started
	s.Cancel()

	res, err := s.Send(context.Background(), "second")
	<-started
	if err != nil || res.State != StateDelivered || res.Reply.Response != "fresh" {
		t.Fatalf("unexpected second result %+v, %v", res, err)
	}

	close(releaseFirst)
	if first := <-firstDone; first.State != StateCanceled {
		t.Fatalf("first result = %+v", first)
	}
	if s.State() != StateDelivered {
		t.Fatalf("late first reply changed state to %s", s.State())
	}
	if h := s.History(); len(h) != 2 || h[1].Content != "fresh" {
		t.Fatalf("unexpected history %+v", h)
	}
}

type fakeChatAPI struct {
	assistantHistory []chat.Turn
	sessionCalls     int
}

func (f *fakeChatAPI) ChatAssistant(_ context.Context, message string, history []chat.Turn) (chat.Reply, error) {
	f.assistantHistory = history
	return chat.Reply{Response: "assistant: " + message, Fallback: true}, nil
}

func (f *fakeChatAPI) ChatSession(_ context.Context, message string) (chat.Reply, error) {
	f.sessionCalls++
	return chat.Reply{Response: "session: " + message}, nil
}

func TestSenders(t *testing.T) {
	api := &fakeChatAPI{}
	ctx := context.Background()

	assistant := NewChatSurface(AssistantSender(api))
	if res, _ := assistant.Send(ctx, "oi"); !res.Reply.Fallback || res.Reply.Response != "assistant: oi" {
		t.Fatalf("unexpected assistant reply %+v", res)
	}

	session := NewChatSurface(SessionSender(api))
	if res, _ := session.Send(ctx, "hello"); res.Reply.Response != "session: hello" {
		t.Fatalf("unexpected session reply %+v", res)
	}
	if api.sessionCalls != 1 {
		t.Fatalf("session calls = %d", api.sessionCalls)
	}
}
