package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/todoia/clients/board"
)

// Run starts the board and blocks until the user quits. When events is
// non-nil, tasks.changed frames read from it refresh the list live.
func Run(ctx context.Context, opts Options, events board.FrameReader) error {
	app := NewApp(ctx, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if events != nil {
		go func() {
			err := opts.Board.Follow(ctx, events, func(err error) {
				p.Send(LiveUpdateMsg{Err: err})
			})
			p.Send(DisconnectedMsg{Err: err})
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run board: %w", err)
	}
	return nil
}
