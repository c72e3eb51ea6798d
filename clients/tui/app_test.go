package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/todoia/clients/board"
	"github.com/dohr-michael/todoia/internal/chat"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/tasks"
)

type memAPI struct {
	mu     sync.Mutex
	nextID int64
	tasks  []tasks.Task
}

func (m *memAPI) ListAllTasks(context.Context) ([]tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tasks.Task(nil), m.tasks...), nil
}

func (m *memAPI) CreateTask(_ context.Context, title, description string) (*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t := tasks.Task{ID: m.nextID, Title: title, Description: description}
	m.tasks = append([]tasks.Task{t}, m.tasks...)
	return &t, nil
}

func (m *memAPI) UpdateTask(_ context.Context, id int64, patch tasks.Patch) (*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			if patch.Title != nil {
				m.tasks[i].Title = *patch.Title
			}
			if patch.Description != nil {
				m.tasks[i].Description = *patch.Description
			}
			t := m.tasks[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (m *memAPI) ToggleTask(_ context.Context, id int64, current bool) (*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks[i].Completed = !current
			t := m.tasks[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (m *memAPI) DeleteTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memAPI) ImproveDescription(_ context.Context, title, _ string) (string, error) {
	return "1. Plan how to " + strings.ToLower(title), nil
}

func newTestApp(t *testing.T) (*App, *memAPI) {
	t.Helper()
	api := &memAPI{}
	app := NewApp(context.Background(), Options{
		Board: board.New(api),
		Assistant: board.NewChatSurface(func(_ context.Context, message string, _ []chat.Turn) (chat.Reply, error) {
			return chat.Reply{Response: "echo " + message}, nil
		}),
		User: "alice@example.com",
	})
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return app, api
}

// press feeds a key and runs the returned command, if any, feeding its
// message back into the app.
func press(t *testing.T, app *App, key tea.KeyMsg) {
	t.Helper()
	_, cmd := app.Update(key)
	run(app, cmd)
}

func run(app *App, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if msg == nil {
		return
	}
	if _, ok := msg.(tea.BatchMsg); ok {
		return
	}
	_, next := app.Update(msg)
	run(app, next)
}

// typeText feeds runes without running the cursor blink commands the
// inputs return.
func typeText(app *App, text string) {
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestApp_CreateTaskFromForm(t *testing.T) {
	app, api := newTestApp(t)

	typeText(app, "n")
	if app.screen != screenForm {
		t.Fatalf("screen = %v, want form", app.screen)
	}
	typeText(app, "Wash the car")
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})

	if app.screen != screenList {
		t.Fatalf("screen = %v, want list", app.screen)
	}
	if len(api.tasks) != 1 || api.tasks[0].Title != "Wash the car" {
		t.Fatalf("unexpected tasks %+v", api.tasks)
	}
	if app.list.Len() != 1 {
		t.Fatalf("list not refreshed, len=%d", app.list.Len())
	}
	if !strings.Contains(app.View(), "Wash the car") {
		t.Fatal("view does not show the new task")
	}
}

func TestApp_DraftDescription(t *testing.T) {
	app, _ := newTestApp(t)

	typeText(app, "n")
	typeText(app, "Wash the car")
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlG})

	if got := app.form.Description(); got != "1. Plan how to wash the car" {
		t.Fatalf("description = %q", got)
	}
	if app.improving[enhance.TargetNew] {
		t.Fatal("request should have settled")
	}
}

func TestApp_SupersededDraftIsDropped(t *testing.T) {
	app, _ := newTestApp(t)
	typeText(app, "n")

	app.Update(improvedMsg{target: enhance.TargetNew, outcome: enhance.Outcome{Text: "stale"}, ok: false})
	if got := app.form.Description(); got != "" {
		t.Fatalf("superseded draft applied: %q", got)
	}
}

func TestApp_ToggleAndDelete(t *testing.T) {
	app, api := newTestApp(t)
	if _, err := api.CreateTask(context.Background(), "Call mom", ""); err != nil {
		t.Fatal(err)
	}
	run(app, app.refresh())

	press(t, app, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	if !api.tasks[0].Completed {
		t.Fatal("expected task to be completed")
	}

	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if len(api.tasks) != 1 {
		t.Fatal("delete must wait for confirmation")
	}
	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if len(api.tasks) != 0 || app.list.Len() != 0 {
		t.Fatalf("expected task deleted, api=%d list=%d", len(api.tasks), app.list.Len())
	}
}

func TestApp_ChatRoundTrip(t *testing.T) {
	app, _ := newTestApp(t)

	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if app.screen != screenChat {
		t.Fatalf("screen = %v, want chat", app.screen)
	}
	typeText(app, "oi")
	press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	lines := app.chatLines[surfaceAssistant]
	if len(lines) != 2 || lines[1].role != "assistant" || lines[1].text != "echo oi" {
		t.Fatalf("unexpected chat lines %+v", lines)
	}
	if !app.chatInput.Enabled() {
		t.Fatal("input should be enabled again after delivery")
	}
}
