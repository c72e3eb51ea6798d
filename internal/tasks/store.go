package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dohr-michael/todoia/internal/apperr"
)

// Store persists tasks. Every method is scoped by owner: a row belonging to
// another owner behaves exactly like a missing row.
type Store interface {
	Create(ctx context.Context, owner, title, description string) (*Task, error)
	Get(ctx context.Context, owner string, id int64) (*Task, error)
	List(ctx context.Context, owner string, limit, offset int) ([]Task, int, error)
	Update(ctx context.Context, owner string, id int64, patch Patch) (*Task, error)
	Delete(ctx context.Context, owner string, id int64) error
}

// ErrTaskNotFound is returned for ids that are absent or owned by someone else.
var ErrTaskNotFound = apperr.NotFound("task not found")

// SQLiteStore implements Store on the todos table.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore wraps an opened, migrated database.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const taskColumns = "id, task, description, is_complete, user_id, inserted_at, updated_at"

func (s *SQLiteStore) Create(ctx context.Context, owner, title, description string) (*Task, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (task, description, is_complete, user_id, inserted_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)`,
		title, description, owner, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert task id: %w", err)
	}
	return s.Get(ctx, owner, id)
}

func (s *SQLiteStore) Get(ctx context.Context, owner string, id int64) (*Task, error) {
	var t Task
	err := s.db.GetContext(ctx, &t,
		"SELECT "+taskColumns+" FROM todos WHERE id = ? AND user_id = ?", id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

func (s *SQLiteStore) List(ctx context.Context, owner string, limit, offset int) ([]Task, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM todos WHERE user_id = ?", owner); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	tasks := []Task{}
	err := s.db.SelectContext(ctx, &tasks,
		"SELECT "+taskColumns+" FROM todos WHERE user_id = ? ORDER BY inserted_at DESC, id DESC LIMIT ? OFFSET ?",
		owner, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *SQLiteStore) Update(ctx context.Context, owner string, id int64, patch Patch) (*Task, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.now()}
	if patch.Title != nil {
		sets = append(sets, "task = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Completed != nil {
		sets = append(sets, "is_complete = ?")
		args = append(args, *patch.Completed)
	}
	args = append(args, id, owner)

	res, err := s.db.ExecContext(ctx,
		"UPDATE todos SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, owner string, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ? AND user_id = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
