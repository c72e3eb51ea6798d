// Package sessions stores session-bound chat history: an append-only,
// session-scoped message log kept in the chat_histories table.
package sessions

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// MessageType tells who produced a message.
type MessageType string

const (
	TypeHuman MessageType = "human"
	TypeAI    MessageType = "ai"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t == TypeHuman || t == TypeAI
}

// Message is one turn of a chat session. The stored JSON envelope uses the
// same field names as the workflow webhook's message history.
type Message struct {
	ID               int64          `json:"id"`
	SessionID        string         `json:"session_id"`
	Type             MessageType    `json:"type"`
	Content          string         `json:"content"`
	AdditionalKwargs map[string]any `json:"additional_kwargs"`
	ResponseMetadata map[string]any `json:"response_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

// ToSchemaMessage converts a stored message to an Eino schema.Message.
func (m Message) ToSchemaMessage() *schema.Message {
	if m.Type == TypeAI {
		return schema.AssistantMessage(m.Content, nil)
	}
	return schema.UserMessage(m.Content)
}

// Stats counts a session's messages by type.
type Stats struct {
	Total int `json:"total_messages" db:"total"`
	Human int `json:"user_messages" db:"human"`
	AI    int `json:"ai_messages" db:"ai"`
}

// Store defines the persistence interface for chat history.
type Store interface {
	Append(ctx context.Context, sessionID string, msg Message) (*Message, error)
	Load(ctx context.Context, sessionID string) ([]Message, error)
	Clear(ctx context.Context, sessionID string) (int64, error)
	Stats(ctx context.Context, sessionID string) (Stats, error)
}
