// Package board is the client-side state behind the interactive board: the
// caller's task list, the description helper drafts and the chat surfaces.
// It holds no cache beyond the list itself, which is re-fetched whole after
// every mutation.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/events"
	wsprotocol "github.com/dohr-michael/todoia/internal/gateway/ws"
	"github.com/dohr-michael/todoia/internal/tasks"
)

// TaskAPI is the subset of the gateway client the board uses.
// *api.Client implements it.
type TaskAPI interface {
	ListAllTasks(ctx context.Context) ([]tasks.Task, error)
	CreateTask(ctx context.Context, title, description string) (*tasks.Task, error)
	UpdateTask(ctx context.Context, id int64, patch tasks.Patch) (*tasks.Task, error)
	ToggleTask(ctx context.Context, id int64, current bool) (*tasks.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ImproveDescription(ctx context.Context, title, current string) (string, error)
}

// FrameReader yields gateway WebSocket frames. *ws.Client implements it.
type FrameReader interface {
	ReadFrame() (wsprotocol.Frame, error)
}

var errUnknownTask = apperr.NotFound("task not found")

// Board is the in-memory task list of the signed-in user.
type Board struct {
	api     TaskAPI
	tracker *enhance.Tracker

	mu    sync.RWMutex
	tasks []tasks.Task
}

func New(api TaskAPI) *Board {
	return &Board{api: api, tracker: enhance.NewTracker()}
}

// Refresh re-fetches every task and replaces the list. On failure the list
// is left as it was.
func (b *Board) Refresh(ctx context.Context) error {
	list, err := b.api.ListAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("refresh tasks: %w", err)
	}
	b.mu.Lock()
	b.tasks = list
	b.mu.Unlock()
	return nil
}

// Tasks returns a copy of the list, newest first.
func (b *Board) Tasks() []tasks.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]tasks.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Find returns the listed task with id.
func (b *Board) Find(id int64) (tasks.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return tasks.Task{}, false
}

// Add creates a task, then refreshes.
func (b *Board) Add(ctx context.Context, title, description string) (*tasks.Task, error) {
	t, err := b.api.CreateTask(ctx, title, description)
	if err != nil {
		return nil, err
	}
	return t, b.Refresh(ctx)
}

// Edit applies patch to task id, then refreshes.
func (b *Board) Edit(ctx context.Context, id int64, patch tasks.Patch) (*tasks.Task, error) {
	t, err := b.api.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return t, b.Refresh(ctx)
}

// Toggle flips the completion of a listed task, then refreshes.
func (b *Board) Toggle(ctx context.Context, id int64) (*tasks.Task, error) {
	cur, ok := b.Find(id)
	if !ok {
		return nil, errUnknownTask
	}
	t, err := b.api.ToggleTask(ctx, id, cur.Completed)
	if err != nil {
		return nil, err
	}
	return t, b.Refresh(ctx)
}

// Remove deletes task id, then refreshes.
func (b *Board) Remove(ctx context.Context, id int64) error {
	if err := b.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// Improve asks for a description for the draft behind target. A newer call
// for the same target supersedes this one; ok is then false and the outcome
// must be dropped.
func (b *Board) Improve(ctx context.Context, target enhance.Target, title, current string) (enhance.Outcome, bool) {
	if strings.TrimSpace(title) == "" {
		b.tracker.Cancel(target)
		return enhance.Outcome{Target: target, Err: enhance.ErrMissingTitle}, true
	}
	return b.tracker.Run(ctx, target, func(ctx context.Context) (string, error) {
		return b.api.ImproveDescription(ctx, title, current)
	})
}

// CancelImprove aborts the live request for target.
func (b *Board) CancelImprove(target enhance.Target) bool {
	return b.tracker.Cancel(target)
}

// Improving reports whether target has a live request.
func (b *Board) Improving(target enhance.Target) bool {
	return b.tracker.Busy(target)
}

// Follow refreshes the list on every tasks.changed frame until r fails.
// onChange, if set, is called after each refresh attempt.
func (b *Board) Follow(ctx context.Context, r FrameReader, onChange func(error)) error {
	for {
		f, err := r.ReadFrame()
		if err != nil {
			return err
		}
		if f.Type != wsprotocol.FrameTypeEvent || f.Event != string(events.EventTasksChanged) {
			continue
		}
		err = b.Refresh(ctx)
		if err != nil {
			slog.Debug("board refresh failed", "error", err)
		}
		if onChange != nil {
			onChange(err)
		}
	}
}
