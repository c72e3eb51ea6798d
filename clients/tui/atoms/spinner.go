// Package atoms provides low-level TUI building blocks.
package atoms

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner is a labelled activity indicator shown while a request is
// pending.
type Spinner struct {
	Model spinner.Model
	style lipgloss.Style
}

func NewSpinner(color lipgloss.AdaptiveColor) Spinner {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(color)
	return Spinner{Model: s, style: lipgloss.NewStyle().Foreground(color)}
}

// Tick starts the animation.
func (s Spinner) Tick() tea.Msg {
	return s.Model.Tick()
}

func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	var cmd tea.Cmd
	s.Model, cmd = s.Model.Update(msg)
	return s, cmd
}

// View renders the current frame followed by label.
func (s Spinner) View(label string) string {
	return s.Model.View() + " " + s.style.Render(label)
}
