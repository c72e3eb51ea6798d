package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/clients/board"
	"github.com/dohr-michael/todoia/clients/tui"
	"github.com/dohr-michael/todoia/clients/ws"
	"github.com/dohr-michael/todoia/internal/config"
)

// NewBoardCommand returns the board subcommand.
func NewBoardCommand() *cli.Command {
	return &cli.Command{
		Name:   "board",
		Usage:  "Open the interactive task board",
		Action: runBoard,
	}
}

func runBoard(ctx context.Context, cmd *cli.Command) error {
	// The board owns the terminal, so logs go to a file.
	if err := os.MkdirAll(config.HomePath(), 0o700); err != nil {
		return fmt.Errorf("create home: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(config.HomePath(), "board.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	setupLogging(cmd, config.LogConfig{}, logFile)

	client, sess, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Board:     board.New(client),
		Assistant: board.NewChatSurface(board.AssistantSender(client)),
		Session:   board.NewChatSurface(board.SessionSender(client)),
		History:   client,
		User:      sess.Email,
	}

	var frames board.FrameReader
	conn, err := ws.Dial(ctx, client.WebSocketURL(), client.Token())
	if err != nil {
		slog.Warn("live updates unavailable", "error", err)
	} else {
		defer conn.Close()
		frames = conn
	}

	return tui.Run(ctx, opts, frames)
}
