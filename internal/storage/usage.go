package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dohr-michael/todoia/internal/events"
)

// Usage is the accumulated token usage of one owner on one provider.
type Usage struct {
	Owner        string    `db:"user_id" json:"user_id"`
	Provider     string    `db:"provider" json:"provider"`
	Calls        int64     `db:"calls" json:"calls"`
	TokensInput  int64     `db:"tokens_input" json:"tokens_input"`
	TokensOutput int64     `db:"tokens_output" json:"tokens_output"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UsageTracker subscribes to model call events and accumulates token usage
// per owner and provider in the model_usage table.
type UsageTracker struct {
	db          *sqlx.DB
	unsubscribe func()
}

// NewUsageTracker creates a UsageTracker that listens for model responses.
func NewUsageTracker(db *sqlx.DB, bus *events.Bus) *UsageTracker {
	ut := &UsageTracker{db: db}
	ut.unsubscribe = bus.Subscribe(ut.handleEvent, events.EventModelCall)
	return ut
}

// Close unsubscribes the tracker from the event bus.
func (ut *UsageTracker) Close() {
	if ut.unsubscribe != nil {
		ut.unsubscribe()
	}
}

func (ut *UsageTracker) handleEvent(e events.Event) {
	payload, ok := events.ExtractPayload[events.ModelCallPayload](e)
	if !ok || payload.Phase != events.PhaseResponse {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ut.record(ctx, e.Owner, payload); err != nil {
		slog.Error("usage tracker: record", "owner", e.Owner, "provider", payload.Provider, "error", err)
	}
}

func (ut *UsageTracker) record(ctx context.Context, owner string, p events.ModelCallPayload) error {
	_, err := ut.db.ExecContext(ctx, `
		INSERT INTO model_usage (user_id, provider, calls, tokens_input, tokens_output, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			calls = calls + 1,
			tokens_input = tokens_input + excluded.tokens_input,
			tokens_output = tokens_output + excluded.tokens_output,
			updated_at = excluded.updated_at`,
		owner, p.Provider, p.TokensInput, p.TokensOutput, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert usage: %w", err)
	}
	return nil
}

// ListUsage returns the usage rows of owner, or of every owner when owner
// is empty.
func ListUsage(ctx context.Context, db *sqlx.DB, owner string) ([]Usage, error) {
	query := "SELECT user_id, provider, calls, tokens_input, tokens_output, updated_at FROM model_usage"
	var args []any
	if owner != "" {
		query += " WHERE user_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY user_id, provider"

	rows := []Usage{}
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return rows, nil
}
