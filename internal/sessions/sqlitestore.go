package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrEmptySession = errors.New("session id is required")

// envelope is the JSON stored in chat_histories.message.
type envelope struct {
	Type             MessageType    `json:"type"`
	Content          string         `json:"content"`
	AdditionalKwargs map[string]any `json:"additional_kwargs"`
	ResponseMetadata map[string]any `json:"response_metadata"`
	ToolCalls        []any          `json:"tool_calls,omitempty"`
	InvalidToolCalls []any          `json:"invalid_tool_calls,omitempty"`
}

type row struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// SQLiteStore implements Store on the chat_histories table.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, msg Message) (*Message, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("invalid message type %q", msg.Type)
	}
	if msg.AdditionalKwargs == nil {
		msg.AdditionalKwargs = map[string]any{}
	}
	if msg.ResponseMetadata == nil {
		msg.ResponseMetadata = map[string]any{}
	}

	env := envelope{
		Type:             msg.Type,
		Content:          msg.Content,
		AdditionalKwargs: msg.AdditionalKwargs,
		ResponseMetadata: msg.ResponseMetadata,
	}
	if msg.Type == TypeAI {
		env.ToolCalls = []any{}
		env.InvalidToolCalls = []any{}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_histories (session_id, message, created_at) VALUES (?, ?, ?)",
		sessionID, string(data), now)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("append message id: %w", err)
	}

	msg.ID = id
	msg.SessionID = sessionID
	msg.CreatedAt = now
	return &msg, nil
}

// Load returns the session's messages in insertion order.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) ([]Message, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, session_id, message, created_at FROM chat_histories WHERE session_id = ? ORDER BY id ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	msgs := make([]Message, 0, len(rows))
	for _, r := range rows {
		var env envelope
		if err := json.Unmarshal([]byte(r.Message), &env); err != nil {
			return nil, fmt.Errorf("decode message %d: %w", r.ID, err)
		}
		msgs = append(msgs, Message{
			ID:               r.ID,
			SessionID:        r.SessionID,
			Type:             env.Type,
			Content:          env.Content,
			AdditionalKwargs: env.AdditionalKwargs,
			ResponseMetadata: env.ResponseMetadata,
			CreatedAt:        r.CreatedAt,
		})
	}
	return msgs, nil
}

// Clear deletes every message of the session in one statement.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, ErrEmptySession
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM chat_histories WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, fmt.Errorf("clear session: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Stats(ctx context.Context, sessionID string) (Stats, error) {
	var st Stats
	if sessionID == "" {
		return st, ErrEmptySession
	}
	err := s.db.GetContext(ctx, &st, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN json_extract(message, '$.type') = 'human' THEN 1 ELSE 0 END), 0) AS human,
			COALESCE(SUM(CASE WHEN json_extract(message, '$.type') = 'ai' THEN 1 ELSE 0 END), 0) AS ai
		FROM chat_histories WHERE session_id = ?`, sessionID)
	if err != nil {
		return st, fmt.Errorf("session stats: %w", err)
	}
	return st, nil
}
