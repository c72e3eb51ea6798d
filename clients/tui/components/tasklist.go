package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/todoia/internal/tasks"
)

// TaskListStyles are the styles the list renders with.
type TaskListStyles struct {
	Selected lipgloss.Style
	Done     lipgloss.Style
	Muted    lipgloss.Style
}

// TaskList is a scrolling, cursor-driven view over a task snapshot.
type TaskList struct {
	items  []tasks.Task
	cursor int
	offset int
	height int
	width  int
	styles TaskListStyles
}

func NewTaskList(styles TaskListStyles) TaskList {
	return TaskList{styles: styles, height: 10}
}

// SetItems replaces the snapshot, keeping the cursor on the same task when
// it is still listed.
func (l *TaskList) SetItems(items []tasks.Task) {
	var selected int64
	if cur, ok := l.Selected(); ok {
		selected = cur.ID
	}
	l.items = items
	l.cursor = 0
	for i, t := range items {
		if t.ID == selected {
			l.cursor = i
			break
		}
	}
	l.clamp()
}

func (l *TaskList) SetSize(width, height int) {
	l.width = width
	if height < 1 {
		height = 1
	}
	l.height = height
	l.clamp()
}

// Selected returns the task under the cursor.
func (l *TaskList) Selected() (tasks.Task, bool) {
	if l.cursor < 0 || l.cursor >= len(l.items) {
		return tasks.Task{}, false
	}
	return l.items[l.cursor], true
}

func (l *TaskList) Up() {
	l.cursor--
	l.clamp()
}

func (l *TaskList) Down() {
	l.cursor++
	l.clamp()
}

func (l *TaskList) Len() int { return len(l.items) }

func (l *TaskList) clamp() {
	if l.cursor >= len(l.items) {
		l.cursor = len(l.items) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.height {
		l.offset = l.cursor - l.height + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

func (l TaskList) View() string {
	if len(l.items) == 0 {
		return l.styles.Muted.Render("No tasks yet. Press n to add one.")
	}
	var sb strings.Builder
	end := min(l.offset+l.height, len(l.items))
	for i := l.offset; i < end; i++ {
		t := l.items[i]
		box := "[ ] "
		title := t.Title
		if t.Completed {
			box = "[x] "
			title = l.styles.Done.Render(title)
		}
		line := box + title
		if t.Description != "" {
			line += l.styles.Muted.Render("  ✎")
		}
		if i == l.cursor {
			line = l.styles.Selected.Render("› ") + line
		} else {
			line = "  " + line
		}
		if l.width > 0 {
			line = lipgloss.NewStyle().MaxWidth(l.width).Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
