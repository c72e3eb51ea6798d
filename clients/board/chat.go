package board

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/chat"
)

// ErrBusy is returned by Send while a message is pending.
var ErrBusy = errors.New("a message is already pending")

var errEmptyMessage = apperr.Validation("message is required")

// State is the lifecycle of the surface's latest outgoing message.
type State string

const (
	StateComposing State = "composing"
	StatePending   State = "pending"
	StateDelivered State = "delivered"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Sender delivers one message. history holds the surface's prior turns.
type Sender func(ctx context.Context, message string, history []chat.Turn) (chat.Reply, error)

// ChatAPI is the subset of the gateway client the chat senders use.
type ChatAPI interface {
	ChatAssistant(ctx context.Context, message string, history []chat.Turn) (chat.Reply, error)
	ChatSession(ctx context.Context, message string) (chat.Reply, error)
}

// AssistantSender sends to the stateless assistant with the full history.
func AssistantSender(api ChatAPI) Sender {
	return api.ChatAssistant
}

// SessionSender sends to the caller's persisted webhook session; the server
// keeps the history.
func SessionSender(api ChatAPI) Sender {
	return func(ctx context.Context, message string, _ []chat.Turn) (chat.Reply, error) {
		return api.ChatSession(ctx, message)
	}
}

// Result is the settled outcome of one Send.
type Result struct {
	State State
	Reply chat.Reply
	Err   error
}

// ChatSurface serializes outgoing messages: at most one is pending, and a
// second send is rejected rather than queued.
type ChatSurface struct {
	send Sender

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc
	history []chat.Turn
}

func NewChatSurface(send Sender) *ChatSurface {
	return &ChatSurface{send: send, state: StateComposing}
}

// Send delivers message and blocks until it settles. A canceled message
// yields StateCanceled with no reply, whatever arrives afterwards.
func (s *ChatSurface) Send(ctx context.Context, message string) (Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{}, errEmptyMessage
	}

	s.mu.Lock()
	if s.state == StatePending {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	sendCtx, cancel := context.WithCancel(ctx)
	s.state = StatePending
	s.gen++
	gen := s.gen
	s.cancel = cancel
	history := make([]chat.Turn, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	reply, err := s.send(sendCtx, message, history)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// Canceled, and possibly followed by a newer send.
		return Result{State: StateCanceled}, nil
	}
	s.cancel = nil

	if errors.Is(err, context.Canceled) {
		s.state = StateCanceled
		return Result{State: StateCanceled}, nil
	}
	if err != nil {
		s.state = StateFailed
		return Result{State: StateFailed, Err: err}, nil
	}
	s.state = StateDelivered
	s.history = append(s.history,
		chat.Turn{Role: "user", Content: message},
		chat.Turn{Role: "assistant", Content: reply.Response},
	)
	return Result{State: StateDelivered, Reply: reply}, nil
}

// Cancel discards the pending message. It reports whether one was pending.
func (s *ChatSurface) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return false
	}
	s.state = StateCanceled
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

// State returns the state of the latest message.
func (s *ChatSurface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns the delivered turns, oldest first.
func (s *ChatSurface) History() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Reset forgets the local history. It does nothing while a message is
// pending.
func (s *ChatSurface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePending {
		return
	}
	s.history = nil
	s.state = StateComposing
}
