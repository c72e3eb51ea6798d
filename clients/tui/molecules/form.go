package molecules

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
)

// TaskForm edits a task draft: a one-line title and a markdown description.
// Tab moves between the two fields.
type TaskForm struct {
	title       textinput.Model
	description textarea.Model
	focus       formField
	taskID      int64
	labelStyle  lipgloss.Style
}

func NewTaskForm(labelStyle lipgloss.Style) TaskForm {
	ti := textinput.New()
	ti.Placeholder = "What needs doing?"
	ti.Prompt = ""
	ti.CharLimit = 500

	ta := textarea.New()
	ta.Placeholder = "Optional markdown description (ctrl+g drafts one)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(8)

	return TaskForm{title: ti, description: ta, labelStyle: labelStyle}
}

// Open resets the form for a task; id is zero for a new task.
func (f *TaskForm) Open(id int64, title, description string) tea.Cmd {
	f.taskID = id
	f.title.SetValue(title)
	f.title.CursorEnd()
	f.description.SetValue(description)
	f.focus = fieldTitle
	f.description.Blur()
	return f.title.Focus()
}

// TaskID returns the id of the edited task, zero for a new one.
func (f *TaskForm) TaskID() int64 { return f.taskID }

func (f *TaskForm) Title() string { return strings.TrimSpace(f.title.Value()) }

func (f *TaskForm) Description() string { return strings.TrimSpace(f.description.Value()) }

// SetDescription replaces the description draft.
func (f *TaskForm) SetDescription(text string) {
	f.description.SetValue(text)
}

func (f *TaskForm) SetSize(width, height int) {
	f.title.Width = max(width-4, 10)
	f.description.SetWidth(max(width-2, 10))
	f.description.SetHeight(max(height-4, 3))
}

func (f TaskForm) Update(msg tea.Msg) (TaskForm, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyTab {
		if f.focus == fieldTitle {
			f.focus = fieldDescription
			f.title.Blur()
			return f, f.description.Focus()
		}
		f.focus = fieldTitle
		f.description.Blur()
		return f, f.title.Focus()
	}

	var cmd tea.Cmd
	if f.focus == fieldTitle {
		f.title, cmd = f.title.Update(msg)
	} else {
		f.description, cmd = f.description.Update(msg)
	}
	return f, cmd
}

// View renders both fields; status is shown under the description.
func (f TaskForm) View(status string) string {
	var sb strings.Builder
	sb.WriteString(f.labelStyle.Render("Title"))
	sb.WriteByte('\n')
	sb.WriteString(f.title.View())
	sb.WriteString("\n\n")
	sb.WriteString(f.labelStyle.Render("Description"))
	sb.WriteByte('\n')
	sb.WriteString(f.description.View())
	if status != "" {
		sb.WriteByte('\n')
		sb.WriteString(status)
	}
	return sb.String()
}
