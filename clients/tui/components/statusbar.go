package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar displays the signed-in user, task counts, live-update state and
// the latest notice.
type StatusBar struct {
	user      string
	total     int
	done      int
	connected bool
	connErr   error
	notice    string
	isError   bool
	width     int
	style     lipgloss.Style
	errStyle  lipgloss.Style
}

func NewStatusBar(style, errStyle lipgloss.Style) StatusBar {
	return StatusBar{style: style, errStyle: errStyle}
}

func (b *StatusBar) SetUser(user string) { b.user = user }

// SetCounts updates the task totals.
func (b *StatusBar) SetCounts(total, done int) { b.total, b.done = total, done }

// SetConnected updates the live-update connection state.
func (b *StatusBar) SetConnected(connected bool, err error) {
	b.connected = connected
	b.connErr = err
}

// Notify shows an informational notice.
func (b *StatusBar) Notify(msg string) { b.notice, b.isError = msg, false }

// Fail shows an error notice.
func (b *StatusBar) Fail(err error) {
	if err == nil {
		return
	}
	b.notice, b.isError = err.Error(), true
}

func (b *StatusBar) SetWidth(w int) { b.width = w }

// Notice returns the current notice and whether it is an error.
func (b *StatusBar) Notice() (string, bool) { return b.notice, b.isError }

func (b StatusBar) View() string {
	live := "live"
	if !b.connected {
		live = "offline"
	}
	bar := fmt.Sprintf(" %s | %d/%d done | %s ", b.user, b.done, b.total, live)
	if b.notice != "" {
		notice := b.notice
		if b.isError {
			notice = b.errStyle.Render(notice)
		}
		bar += "| " + notice + " "
	}
	return b.style.Width(b.width).Render(bar)
}
