package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/todoia/clients/board"
	"github.com/dohr-michael/todoia/clients/tui/atoms"
	"github.com/dohr-michael/todoia/clients/tui/components"
	"github.com/dohr-michael/todoia/clients/tui/molecules"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/sessions"
	"github.com/dohr-michael/todoia/internal/tasks"
)

// requestTimeout bounds every call made from the board.
const requestTimeout = 90 * time.Second

type screen int

const (
	screenList screen = iota
	screenForm
	screenDetail
	screenChat
)

type surfaceKind int

const (
	surfaceAssistant surfaceKind = iota
	surfaceSession
)

func (k surfaceKind) String() string {
	if k == surfaceSession {
		return "Session"
	}
	return "Assistant"
}

// HistoryAPI loads and clears the persisted chat session.
type HistoryAPI interface {
	ChatHistory(ctx context.Context) ([]sessions.Message, error)
	ClearChatHistory(ctx context.Context) error
}

// Options are the App's collaborators. History may be nil, which hides the
// persisted session surface.
type Options struct {
	Board     *board.Board
	Assistant *board.ChatSurface
	Session   *board.ChatSurface
	History   HistoryAPI
	User      string
}

type chatLine struct {
	role string // "user", "assistant", "error" or "system"
	text string
}

// App is the board's root model.
// Layout: HEADER | BODY | HELP | STATUS
type App struct {
	ctx   context.Context
	opts  Options
	board *board.Board

	screen  screen
	width   int
	height  int
	list    components.TaskList
	form    molecules.TaskForm
	detail  viewport.Model
	status  components.StatusBar
	spinner atoms.Spinner

	busy      bool
	improving map[enhance.Target]bool
	confirmID int64

	surface       surfaceKind
	chatView      viewport.Model
	chatInput     molecules.ChatInput
	chatLines     map[surfaceKind][]chatLine
	historyLoaded bool
}

// NewApp creates the board model. ctx bounds every request it makes.
func NewApp(ctx context.Context, opts Options) *App {
	status := components.NewStatusBar(StatusBarStyle, ErrorStyle)
	status.SetUser(opts.User)
	return &App{
		ctx:   ctx,
		opts:  opts,
		board: opts.Board,
		list: components.NewTaskList(components.TaskListStyles{
			Selected: SelectedStyle,
			Done:     DoneStyle,
			Muted:    MutedStyle,
		}),
		form:      molecules.NewTaskForm(TitleStyle),
		detail:    viewport.New(80, 20),
		status:    status,
		spinner:   atoms.NewSpinner(ColorAccent),
		improving: make(map[enhance.Target]bool),
		chatView:  viewport.New(80, 20),
		chatInput: molecules.NewChatInput("Ask about your tasks..."),
		chatLines: make(map[surfaceKind][]chatLine),
	}
}

func (a *App) Init() tea.Cmd {
	a.busy = true
	return tea.Batch(a.spinner.Tick, a.refresh())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.updateSizes()
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.board.CancelImprove(enhance.TargetNew)
			a.board.CancelImprove(enhance.TargetEdit)
			return a, tea.Quit
		}
		switch a.screen {
		case screenForm:
			return a.updateForm(msg)
		case screenDetail:
			return a.updateDetail(msg)
		case screenChat:
			return a.updateChat(msg)
		default:
			return a.updateList(msg)
		}

	case refreshedMsg:
		a.busy = false
		if msg.err != nil {
			a.status.Fail(msg.err)
		}
		a.syncList()
		return a, nil

	case mutatedMsg:
		a.busy = false
		if msg.err != nil {
			a.status.Fail(fmt.Errorf("%s: %w", msg.verb, msg.err))
		} else {
			a.status.Notify("task " + msg.verb)
		}
		a.syncList()
		return a, nil

	case LiveUpdateMsg:
		a.status.SetConnected(true, nil)
		if msg.Err != nil {
			a.status.Fail(msg.Err)
		}
		a.syncList()
		return a, nil

	case DisconnectedMsg:
		a.status.SetConnected(false, msg.Err)
		return a, nil

	case improvedMsg:
		return a.handleImproved(msg)

	case molecules.SubmitMsg:
		return a.sendChat(msg.Content)

	case chatSentMsg:
		return a.handleChatSent(msg)

	case historyMsg:
		if msg.err != nil {
			a.status.Fail(fmt.Errorf("load history: %w", msg.err))
			return a, nil
		}
		lines := make([]chatLine, 0, len(msg.messages))
		for _, m := range msg.messages {
			role := "assistant"
			if m.Type == sessions.TypeHuman {
				role = "user"
			}
			lines = append(lines, chatLine{role: role, text: m.Content})
		}
		a.chatLines[surfaceSession] = lines
		a.renderChat()
		return a, nil

	case historyClearedMsg:
		if msg.err != nil {
			a.status.Fail(fmt.Errorf("clear history: %w", msg.err))
			return a, nil
		}
		a.chatLines[surfaceSession] = nil
		a.status.Notify("history cleared")
		a.renderChat()
		return a, nil
	}

	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

func (a *App) updateSizes() {
	bodyHeight := max(a.height-4, 3) // header, help, status, spacing
	a.list.SetSize(a.width, bodyHeight)
	a.form.SetSize(a.width, bodyHeight-3)
	a.detail.Width = a.width
	a.detail.Height = bodyHeight
	a.chatView.Width = a.width
	a.chatView.Height = max(bodyHeight-2, 1)
	a.chatInput.SetWidth(a.width)
	a.status.SetWidth(a.width)
	if a.screen == screenDetail {
		a.renderDetail()
	}
	a.renderChat()
}

// syncList copies the board snapshot into the list view.
func (a *App) syncList() {
	items := a.board.Tasks()
	a.list.SetItems(items)
	done := 0
	for _, t := range items {
		if t.Completed {
			done++
		}
	}
	a.status.SetCounts(len(items), done)
	if a.screen == screenDetail {
		a.renderDetail()
	}
}

func (a *App) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(a.ctx, requestTimeout)
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		return refreshedMsg{err: a.board.Refresh(ctx)}
	}
}

func (a *App) mutate(verb string, fn func(ctx context.Context) error) tea.Cmd {
	a.busy = true
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		return mutatedMsg{verb: verb, err: fn(ctx)}
	}
}

// List screen.

func (a *App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if a.confirmID != 0 {
		id := a.confirmID
		a.confirmID = 0
		if key != "y" {
			a.status.Notify("delete canceled")
			return a, nil
		}
		return a, a.mutate("deleted", func(ctx context.Context) error {
			return a.board.Remove(ctx, id)
		})
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "up", "k":
		a.list.Up()
	case "down", "j":
		a.list.Down()
	case "r":
		a.busy = true
		return a, a.refresh()
	case "n":
		a.screen = screenForm
		return a, a.form.Open(0, "", "")
	case "e":
		if t, ok := a.list.Selected(); ok {
			a.screen = screenForm
			return a, a.form.Open(t.ID, t.Title, t.Description)
		}
	case "enter":
		if _, ok := a.list.Selected(); ok {
			a.screen = screenDetail
			a.renderDetail()
		}
	case " ", "x":
		if t, ok := a.list.Selected(); ok && !a.busy {
			return a, a.mutate("updated", func(ctx context.Context) error {
				_, err := a.board.Toggle(ctx, t.ID)
				return err
			})
		}
	case "d":
		if t, ok := a.list.Selected(); ok && !a.busy {
			a.confirmID = t.ID
			a.status.Notify(fmt.Sprintf("delete %q? (y/N)", t.Title))
		}
	case "c":
		return a.openChat()
	}
	return a, nil
}

// Form screen.

func (a *App) formTarget() enhance.Target {
	if a.form.TaskID() == 0 {
		return enhance.TargetNew
	}
	return enhance.TargetEdit
}

func (a *App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		target := a.formTarget()
		if a.board.CancelImprove(target) {
			a.improving[target] = false
			a.status.Notify("description request canceled")
		}
		a.screen = screenList
		return a, nil

	case "ctrl+g":
		target := a.formTarget()
		title, current := a.form.Title(), a.form.Description()
		a.improving[target] = true
		return a, func() tea.Msg {
			ctx, cancel := a.requestContext()
			defer cancel()
			out, ok := a.board.Improve(ctx, target, title, current)
			return improvedMsg{target: target, outcome: out, ok: ok}
		}

	case "ctrl+s":
		if a.busy {
			return a, nil
		}
		id, title, desc := a.form.TaskID(), a.form.Title(), a.form.Description()
		if title == "" {
			a.status.Fail(errors.New("title is required"))
			return a, nil
		}
		target := a.formTarget()
		a.board.CancelImprove(target)
		a.improving[target] = false
		a.screen = screenList
		if id == 0 {
			return a, a.mutate("created", func(ctx context.Context) error {
				_, err := a.board.Add(ctx, title, desc)
				return err
			})
		}
		return a, a.mutate("updated", func(ctx context.Context) error {
			_, err := a.board.Edit(ctx, id, tasks.Patch{Title: &title, Description: &desc})
			return err
		})
	}

	var cmd tea.Cmd
	a.form, cmd = a.form.Update(msg)
	return a, cmd
}

func (a *App) handleImproved(msg improvedMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		// Superseded or canceled; a newer request may still be live.
		a.improving[msg.target] = a.board.Improving(msg.target)
		return a, nil
	}
	a.improving[msg.target] = false
	if msg.outcome.Err != nil {
		a.status.Fail(msg.outcome.Err)
		return a, nil
	}
	if a.screen == screenForm && a.formTarget() == msg.target {
		a.form.SetDescription(msg.outcome.Text)
		a.status.Notify("description drafted")
	}
	return a, nil
}

// Detail screen.

func (a *App) renderDetail() {
	t, ok := a.list.Selected()
	if !ok {
		a.detail.SetContent(MutedStyle.Render("Task no longer exists."))
		return
	}
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(t.Title))
	if t.Completed {
		sb.WriteString(" " + DoneStyle.Render("done"))
	}
	sb.WriteString("\n" + MutedStyle.Render("created "+t.CreatedAt.Local().Format("2006-01-02 15:04")) + "\n\n")
	if t.Description == "" {
		sb.WriteString(MutedStyle.Render("No description. Press e, then ctrl+g to draft one."))
	} else {
		sb.WriteString(components.RenderMarkdown(t.Description, max(a.width-2, 20)))
	}
	a.detail.SetContent(sb.String())
	a.detail.GotoTop()
}

func (a *App) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.screen = screenList
		return a, nil
	case "e":
		if t, ok := a.list.Selected(); ok {
			a.screen = screenForm
			return a, a.form.Open(t.ID, t.Title, t.Description)
		}
	}
	var cmd tea.Cmd
	a.detail, cmd = a.detail.Update(msg)
	return a, cmd
}

// Chat screen.

func (a *App) chatSurface() *board.ChatSurface {
	if a.surface == surfaceSession {
		return a.opts.Session
	}
	return a.opts.Assistant
}

func (a *App) openChat() (tea.Model, tea.Cmd) {
	if a.opts.Assistant == nil {
		return a, nil
	}
	a.screen = screenChat
	a.syncChatInput()
	a.renderChat()
	return a, a.loadHistory()
}

// loadHistory fetches the session history the first time the session
// surface is shown.
func (a *App) loadHistory() tea.Cmd {
	if a.surface != surfaceSession || a.opts.History == nil || a.historyLoaded {
		return nil
	}
	a.historyLoaded = true
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		msgs, err := a.opts.History.ChatHistory(ctx)
		return historyMsg{messages: msgs, err: err}
	}
}

func (a *App) syncChatInput() {
	s := a.chatSurface()
	a.chatInput.SetEnabled(s != nil && s.State() != board.StatePending)
}

func (a *App) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if s := a.chatSurface(); s != nil && s.Cancel() {
			return a, nil
		}
		a.screen = screenList
		return a, nil
	case "tab":
		if a.opts.Session == nil {
			return a, nil
		}
		if a.surface == surfaceAssistant {
			a.surface = surfaceSession
		} else {
			a.surface = surfaceAssistant
		}
		a.syncChatInput()
		a.renderChat()
		return a, a.loadHistory()
	case "ctrl+l":
		if a.surface == surfaceSession && a.opts.History != nil {
			return a, func() tea.Msg {
				ctx, cancel := a.requestContext()
				defer cancel()
				return historyClearedMsg{err: a.opts.History.ClearChatHistory(ctx)}
			}
		}
		a.opts.Assistant.Reset()
		a.chatLines[surfaceAssistant] = nil
		a.renderChat()
		return a, nil
	case "pgup":
		a.chatView.PageUp()
		return a, nil
	case "pgdown":
		a.chatView.PageDown()
		return a, nil
	}

	var cmd tea.Cmd
	a.chatInput, cmd = a.chatInput.Update(msg)
	return a, cmd
}

func (a *App) sendChat(content string) (tea.Model, tea.Cmd) {
	s := a.chatSurface()
	if s == nil {
		return a, nil
	}
	if s.State() == board.StatePending {
		a.status.Fail(board.ErrBusy)
		return a, nil
	}
	kind := a.surface
	a.chatLines[kind] = append(a.chatLines[kind], chatLine{role: "user", text: content})
	a.chatInput.SetEnabled(false)
	a.renderChat()
	return a, func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		res, err := s.Send(ctx, content)
		return chatSentMsg{surface: kind, result: res, err: err}
	}
}

func (a *App) handleChatSent(msg chatSentMsg) (tea.Model, tea.Cmd) {
	lines := a.chatLines[msg.surface]
	switch {
	case msg.err != nil:
		lines = append(lines, chatLine{role: "error", text: msg.err.Error()})
	case msg.result.State == board.StateCanceled:
		lines = append(lines, chatLine{role: "system", text: "message canceled"})
	case msg.result.State == board.StateFailed:
		lines = append(lines, chatLine{role: "error", text: msg.result.Err.Error()})
	default:
		lines = append(lines, chatLine{role: "assistant", text: msg.result.Reply.Response})
	}
	a.chatLines[msg.surface] = lines
	if msg.surface == a.surface {
		a.syncChatInput()
	}
	a.renderChat()
	return a, nil
}

func (a *App) renderChat() {
	width := max(a.width-2, 20)
	var sb strings.Builder
	for i, l := range a.chatLines[a.surface] {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch l.role {
		case "user":
			sb.WriteString(UserStyle.Render("you") + "\n" + l.text)
		case "assistant":
			sb.WriteString(AssistantStyle.Render("todoia") + "\n" + components.RenderMarkdown(l.text, width))
		case "error":
			sb.WriteString(ErrorStyle.Render("error: " + l.text))
		default:
			sb.WriteString(MutedStyle.Render(l.text))
		}
	}
	a.chatView.SetContent(sb.String())
	a.chatView.GotoBottom()
}

// View renders the current screen.
func (a *App) View() string {
	var header, body, help string
	switch a.screen {
	case screenForm:
		header = "New task"
		if a.form.TaskID() != 0 {
			header = "Edit task"
		}
		status := ""
		if a.improving[a.formTarget()] {
			status = a.spinner.View("drafting description... (esc cancels)")
		}
		body = a.form.View(status)
		help = "tab switch field • ctrl+g draft description • ctrl+s save • esc back"
	case screenDetail:
		header = "Task"
		body = a.detail.View()
		help = "e edit • ↑/↓ scroll • esc back"
	case screenChat:
		header = a.surface.String() + " chat"
		body = a.chatView.View() + "\n"
		if s := a.chatSurface(); s != nil && s.State() == board.StatePending {
			body += a.spinner.View("waiting for reply... (esc cancels)")
		} else {
			body += a.chatInput.View()
		}
		help = "enter send • ctrl+l clear • pgup/pgdown scroll • esc back"
		if a.opts.Session != nil {
			help = "tab switch chat • " + help
		}
	default:
		header = "todoia"
		body = a.list.View()
		if a.busy {
			body += "\n" + a.spinner.View("syncing...")
		}
		help = "n new • e edit • enter open • space toggle • d delete • r refresh • c chat • q quit"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(header),
		body,
		MutedStyle.Render(help),
		a.status.View(),
	)
}
