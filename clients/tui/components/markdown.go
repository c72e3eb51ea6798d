// Package components provides reusable TUI components for the board.
package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

// descriptionStyle is the dark glamour style with the board's accent colors.
// Task descriptions are short how-to notes, so block margins are dropped.
func descriptionStyle() ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	cfg.Document.Margin = uintPtr(0)
	cfg.Document.BlockPrefix = ""
	cfg.Document.BlockSuffix = ""
	cfg.Heading.Color = stringPtr("#D8A6FF")
	cfg.H1.Color = stringPtr("#D8A6FF")
	cfg.H1.BackgroundColor = nil
	cfg.H2.Color = stringPtr("#D8A6FF")
	cfg.H3.Color = stringPtr("#7EE2B8")
	cfg.Item.BlockPrefix = "• "
	cfg.Task.Ticked = "[✓] "
	cfg.Task.Unticked = "[ ] "
	return cfg
}

func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

// renderer returns a cached renderer wrapping at width.
func renderer(width int) (*glamour.TermRenderer, error) {
	renderersMu.Lock()
	defer renderersMu.Unlock()
	if r, ok := renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(descriptionStyle()),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	renderers[width] = r
	return r, nil
}

// RenderMarkdown renders markdown for the terminal. On failure the source is
// returned as is.
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	r, err := renderer(width)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
