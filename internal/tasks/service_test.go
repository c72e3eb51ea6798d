package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/events"
	"github.com/dohr-michael/todoia/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)
	return NewService(NewSQLiteStore(testutil.NewTestDB(t)), bus), bus
}

func strPtr(s string) *string { return &s }

func TestCreateThenList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", "  Buy milk  ", "  2 liters ")
	if err != nil {
		t.Fatal(err)
	}
	if created.Title != "Buy milk" || created.Description != "2 liters" {
		t.Errorf("expected trimmed fields, got %q / %q", created.Title, created.Description)
	}
	if created.Completed {
		t.Error("new task must be incomplete")
	}
	if created.Owner != "alice" {
		t.Errorf("owner = %q", created.Owner)
	}

	page, err := svc.List(ctx, "alice", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	matches := 0
	for _, task := range page.Data {
		if task.Title == "Buy milk" {
			matches++
			if task.Completed {
				t.Error("listed task must be incomplete")
			}
		}
	}
	if matches != 1 {
		t.Errorf("expected exactly one match, got %d", matches)
	}
	if page.Pagination.Page != 1 || page.Pagination.Limit != DefaultLimit || page.Pagination.Total != 1 || page.Pagination.TotalPages != 1 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestListNewestFirstAndPaged(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		if _, err := svc.Create(ctx, "alice", title, ""); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Create(ctx, "bob", "not mine", ""); err != nil {
		t.Fatal(err)
	}

	page, err := svc.List(ctx, "alice", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 2 || page.Data[0].Title != "three" || page.Data[1].Title != "two" {
		t.Fatalf("first page = %+v", page.Data)
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 {
		t.Errorf("pagination = %+v", page.Pagination)
	}

	page, err = svc.List(ctx, "alice", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 1 || page.Data[0].Title != "one" {
		t.Errorf("second page = %+v", page.Data)
	}

	all, err := svc.ListAll(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("ListAll returned %d tasks", len(all))
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.List(context.Background(), "nobody", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Data == nil || len(page.Data) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", page.Data)
	}
	if page.Pagination.TotalPages != 0 {
		t.Errorf("totalPages = %d", page.Pagination.TotalPages)
	}
}

func TestListRejectsBadPaging(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, tc := range []struct{ page, limit int }{{-1, 10}, {1, 101}, {1, -5}} {
		if _, err := svc.List(ctx, "alice", tc.page, tc.limit); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("List(%d, %d): expected validation error, got %v", tc.page, tc.limit, err)
		}
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "alice", "   ", "desc")
	if !errors.Is(err, ErrMissingTitle) {
		t.Errorf("expected ErrMissingTitle, got %v", err)
	}
}

func TestRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "x", ""); apperr.KindOf(err) != apperr.KindUnauthenticated {
		t.Errorf("Create: %v", err)
	}
	if _, err := svc.List(ctx, "", 1, 10); apperr.KindOf(err) != apperr.KindUnauthenticated {
		t.Errorf("List: %v", err)
	}
	if err := svc.Delete(ctx, "", 1); apperr.KindOf(err) != apperr.KindUnauthenticated {
		t.Errorf("Delete: %v", err)
	}
}

func TestForeignAndAbsentIdsAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bobs, err := svc.Create(ctx, "bob", "bob's task", "")
	if err != nil {
		t.Fatal(err)
	}
	const absent = int64(9999)

	ops := map[string]func(id int64) error{
		"get": func(id int64) error {
			_, err := svc.Get(ctx, "alice", id)
			return err
		},
		"update": func(id int64) error {
			_, err := svc.Update(ctx, "alice", id, Patch{Title: strPtr("hijacked")})
			return err
		},
		"toggle": func(id int64) error {
			_, err := svc.ToggleComplete(ctx, "alice", id, false)
			return err
		},
		"delete": func(id int64) error {
			return svc.Delete(ctx, "alice", id)
		},
	}

	for name, op := range ops {
		foreign := op(bobs.ID)
		missing := op(absent)
		if apperr.KindOf(foreign) != apperr.KindNotFound || apperr.KindOf(missing) != apperr.KindNotFound {
			t.Errorf("%s: expected not found, got %v / %v", name, foreign, missing)
			continue
		}
		if foreign.Error() != missing.Error() || apperr.StatusOf(foreign) != apperr.StatusOf(missing) {
			t.Errorf("%s: outcomes differ: %q vs %q", name, foreign, missing)
		}
	}

	still, err := svc.Get(ctx, "bob", bobs.ID)
	if err != nil {
		t.Fatal(err)
	}
	if still.Title != "bob's task" || still.Completed {
		t.Errorf("bob's task was modified: %+v", still)
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", "Walk the dog", "")
	if err != nil {
		t.Fatal(err)
	}

	once, err := svc.ToggleComplete(ctx, "alice", task.ID, task.Completed)
	if err != nil {
		t.Fatal(err)
	}
	if !once.Completed {
		t.Fatal("expected completed after first toggle")
	}
	twice, err := svc.ToggleComplete(ctx, "alice", task.ID, once.Completed)
	if err != nil {
		t.Fatal(err)
	}
	if twice.Completed != task.Completed {
		t.Errorf("expected original value %v, got %v", task.Completed, twice.Completed)
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", "Draft", "old")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx, "alice", task.ID, Patch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("expected ErrEmptyPatch, got %v", err)
	}
	if _, err := svc.Update(ctx, "alice", task.ID, Patch{Title: strPtr(" ")}); !errors.Is(err, ErrMissingTitle) {
		t.Errorf("expected ErrMissingTitle, got %v", err)
	}

	done := true
	updated, err := svc.Update(ctx, "alice", task.ID, Patch{Description: strPtr(" new "), Completed: &done})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Draft" || updated.Description != "new" || !updated.Completed {
		t.Errorf("unexpected update result %+v", updated)
	}
	if updated.UpdatedAt.Before(task.UpdatedAt) {
		t.Error("updated_at went backwards")
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", "Temporary", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "alice", task.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "alice", task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := svc.Delete(ctx, "alice", task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestMutationsPublishRefresh(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	ch, unsub := bus.SubscribeChan(16, events.EventTasksChanged)
	defer unsub()

	task, err := svc.Create(ctx, "alice", "Signal", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleComplete(ctx, "alice", task.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "alice", task.ID); err != nil {
		t.Fatal(err)
	}
	// Failed writes publish nothing.
	_ = svc.Delete(ctx, "alice", task.ID)

	want := []events.TaskOp{events.TaskOpCreate, events.TaskOpToggle, events.TaskOpDelete}
	for i, op := range want {
		select {
		case e := <-ch:
			p, ok := events.ExtractPayload[events.TasksChangedPayload](e)
			if !ok || p.Op != op || p.TaskID != task.ID || e.Owner != "alice" {
				t.Errorf("event %d = %+v (owner %q)", i, p, e.Owner)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	select {
	case e := <-ch:
		t.Errorf("unexpected extra event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

type failingStore struct{ Store }

func (failingStore) List(context.Context, string, int, int) ([]Task, int, error) {
	return nil, 0, errors.New("disk I/O error")
}

func TestStoreFailureIsOpaque(t *testing.T) {
	svc := NewService(failingStore{}, nil)

	_, err := svc.List(context.Background(), "alice", 1, 10)
	if apperr.KindOf(err) != apperr.KindStore {
		t.Fatalf("expected store error, got %v", err)
	}
	if apperr.MessageOf(err) != "store error" {
		t.Errorf("message leaked cause: %q", apperr.MessageOf(err))
	}
}
