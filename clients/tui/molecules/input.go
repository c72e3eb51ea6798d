// Package molecules provides the board's input widgets.
package molecules

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// SubmitMsg is sent when the user presses Enter in a ChatInput.
type SubmitMsg struct {
	Content string
}

// ChatInput is a single-line input with Enter-to-submit and Up/Down recall
// of earlier messages. It can be disabled while a message is pending.
type ChatInput struct {
	input   textinput.Model
	enabled bool
	history []string
	histIdx int
	draft   string
}

func NewChatInput(placeholder string) ChatInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()
	return ChatInput{input: ti, enabled: true, histIdx: -1}
}

func (c *ChatInput) SetWidth(w int) {
	c.input.Width = max(w-3, 1)
}

// SetEnabled toggles the send control.
func (c *ChatInput) SetEnabled(enabled bool) {
	c.enabled = enabled
	if enabled {
		c.input.Focus()
	} else {
		c.input.Blur()
	}
}

func (c *ChatInput) Enabled() bool { return c.enabled }

func (c *ChatInput) Value() string { return c.input.Value() }

func (c *ChatInput) Reset() {
	c.input.Reset()
	c.histIdx = -1
	c.draft = ""
}

// Update handles key events while enabled.
func (c ChatInput) Update(msg tea.Msg) (ChatInput, tea.Cmd) {
	if !c.enabled {
		return c, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			content := strings.TrimSpace(c.input.Value())
			if content == "" {
				return c, nil
			}
			c.history = append(c.history, content)
			c.Reset()
			return c, func() tea.Msg { return SubmitMsg{Content: content} }

		case tea.KeyUp:
			if len(c.history) == 0 {
				return c, nil
			}
			if c.histIdx == -1 {
				c.draft = c.input.Value()
				c.histIdx = len(c.history) - 1
			} else if c.histIdx > 0 {
				c.histIdx--
			}
			c.input.SetValue(c.history[c.histIdx])
			c.input.CursorEnd()
			return c, nil

		case tea.KeyDown:
			if c.histIdx == -1 {
				return c, nil
			}
			if c.histIdx < len(c.history)-1 {
				c.histIdx++
				c.input.SetValue(c.history[c.histIdx])
			} else {
				c.histIdx = -1
				c.input.SetValue(c.draft)
			}
			c.input.CursorEnd()
			return c, nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c ChatInput) View() string {
	return c.input.View()
}
