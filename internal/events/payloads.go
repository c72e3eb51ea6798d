package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// TaskOp names the mutation behind a tasks.changed event.
type TaskOp string

const (
	TaskOpCreate TaskOp = "create"
	TaskOpUpdate TaskOp = "update"
	TaskOpDelete TaskOp = "delete"
	TaskOpToggle TaskOp = "toggle"
)

type TasksChangedPayload struct {
	Op     TaskOp `json:"op"`
	TaskID int64  `json:"task_id"`
}

func (TasksChangedPayload) EventType() EventType { return EventTasksChanged }

type ChatMessagePayload struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"` // "human" or "ai"
	Content   string `json:"content"`
}

func (ChatMessagePayload) EventType() EventType { return EventChatMessage }

type SessionsPurgedPayload struct {
	Count int64 `json:"count"`
}

func (SessionsPurgedPayload) EventType() EventType { return EventSessionsPurged }

// Model call phases.
const (
	PhaseRequest  = "request"
	PhaseResponse = "response"
	PhaseError    = "error"
)

type ModelCallPayload struct {
	Phase        string `json:"phase"`
	Provider     string `json:"provider"`
	Model        string `json:"model,omitempty"`
	Messages     int    `json:"messages,omitempty"`
	TokensInput  int    `json:"tokens_input,omitempty"`
	TokensOutput int    `json:"tokens_output,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (ModelCallPayload) EventType() EventType { return EventModelCall }

// NewTypedEvent builds an event scoped to owner from a typed payload.
func NewTypedEvent(source EventSource, owner string, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Owner:     owner,
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes the event payload into T.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
