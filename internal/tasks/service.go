package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/events"
)

var (
	ErrMissingTitle     = apperr.Validation("title is required")
	ErrEmptyPatch       = apperr.Validation("no fields to update")
	ErrNotAuthenticated = apperr.Unauthenticated("not authenticated")
)

// Service is the mutation façade over a Store. Each write is a single
// owner-scoped statement followed by a tasks.changed event for that owner.
type Service struct {
	store Store
	bus   *events.Bus
}

// NewService creates a Service. bus may be nil.
func NewService(store Store, bus *events.Bus) *Service {
	return &Service{store: store, bus: bus}
}

// Create adds an incomplete task owned by owner.
func (s *Service) Create(ctx context.Context, owner, title, description string) (*Task, error) {
	if owner == "" {
		return nil, ErrNotAuthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	t, err := s.store.Create(ctx, owner, title, strings.TrimSpace(description))
	if err != nil {
		return nil, storeError("create task", err)
	}
	s.publish(owner, events.TaskOpCreate, t.ID)
	return t, nil
}

// Update applies a partial update. The patch must change at least one field.
func (s *Service) Update(ctx context.Context, owner string, id int64, patch Patch) (*Task, error) {
	if owner == "" {
		return nil, ErrNotAuthenticated
	}
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ErrMissingTitle
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		patch.Description = &desc
	}

	t, err := s.store.Update(ctx, owner, id, patch)
	if err != nil {
		return nil, storeError("update task", err)
	}
	s.publish(owner, events.TaskOpUpdate, id)
	return t, nil
}

// Delete removes a task permanently.
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	if owner == "" {
		return ErrNotAuthenticated
	}
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return storeError("delete task", err)
	}
	s.publish(owner, events.TaskOpDelete, id)
	return nil
}

// ToggleComplete sets completion to !current. The caller passes the value it
// last saw, so two toggles in a row restore the original state.
func (s *Service) ToggleComplete(ctx context.Context, owner string, id int64, current bool) (*Task, error) {
	if owner == "" {
		return nil, ErrNotAuthenticated
	}
	next := !current
	t, err := s.store.Update(ctx, owner, id, Patch{Completed: &next})
	if err != nil {
		return nil, storeError("toggle task", err)
	}
	s.publish(owner, events.TaskOpToggle, id)
	return t, nil
}

// Get returns a single task.
func (s *Service) Get(ctx context.Context, owner string, id int64) (*Task, error) {
	if owner == "" {
		return nil, ErrNotAuthenticated
	}
	t, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, storeError("get task", err)
	}
	return t, nil
}

// List returns one page of the owner's tasks, newest first. Zero page or
// limit select the defaults.
func (s *Service) List(ctx context.Context, owner string, page, limit int) (*Page, error) {
	if owner == "" {
		return nil, ErrNotAuthenticated
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if page < 1 {
		return nil, apperr.Validation("page must be >= 1")
	}
	if limit < 1 || limit > MaxLimit {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}

	data, total, err := s.store.List(ctx, owner, limit, (page-1)*limit)
	if err != nil {
		return nil, storeError("list tasks", err)
	}
	return &Page{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// ListAll walks every page and returns the owner's full task list.
func (s *Service) ListAll(ctx context.Context, owner string) ([]Task, error) {
	var all []Task
	for page := 1; ; page++ {
		p, err := s.List(ctx, owner, page, MaxLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if page >= p.Pagination.TotalPages {
			return all, nil
		}
	}
}

func (s *Service) publish(owner string, op events.TaskOp, id int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewTypedEvent(events.SourceTasks, owner, events.TasksChangedPayload{Op: op, TaskID: id}))
}

// storeError passes classified errors through and hides everything else
// behind an opaque store error. The cause is logged.
func storeError(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	slog.Error("task store failure", "op", op, "error", err)
	return apperr.Store(err)
}
