package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/clients/tui/components"
	"github.com/dohr-michael/todoia/internal/chat"
	"github.com/dohr-michael/todoia/internal/sessions"
)

// NewChatCommand returns the chat subcommand.
func NewChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Ask the assistant, or the session chat with --session",
		ArgsUsage: "<message...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "session",
				Usage: "Send to the persisted session chat instead of the assistant",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print the reply without markdown rendering",
			},
		},
		Action: runChat,
		Commands: []*cli.Command{
			{
				Name:   "history",
				Usage:  "Show the session chat history",
				Action: runChatHistory,
			},
			{
				Name:   "clear",
				Usage:  "Delete the session chat history",
				Action: runChatClear,
			},
			{
				Name:   "stats",
				Usage:  "Show session chat counters",
				Action: runChatStats,
			},
		},
	}
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	message := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if message == "" {
		return fmt.Errorf("usage: todoia chat [--session] <message>")
	}
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}

	var reply chat.Reply
	if cmd.Bool("session") {
		reply, err = client.ChatSession(ctx, message)
	} else {
		reply, err = client.ChatAssistant(ctx, message, nil)
	}
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	if cmd.Bool("raw") {
		fmt.Println(reply.Response)
	} else {
		fmt.Println(components.RenderMarkdown(reply.Response, 80))
	}
	if reply.Fallback {
		fmt.Fprintln(os.Stderr, "(fallback reply: the backend was unavailable)")
	}
	return nil
}

func runChatHistory(ctx context.Context, cmd *cli.Command) error {
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	msgs, err := client.ChatHistory(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Println("No messages in this session.")
		return nil
	}
	for _, m := range msgs {
		who := "todoia"
		if m.Type == sessions.TypeHuman {
			who = "you"
		}
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), who, m.Content)
	}
	return nil
}

func runChatClear(ctx context.Context, cmd *cli.Command) error {
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	if err := client.ClearChatHistory(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	fmt.Println("Session history cleared.")
	return nil
}

func runChatStats(ctx context.Context, cmd *cli.Command) error {
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	stats, err := client.ChatStats(ctx)
	if err != nil {
		return fmt.Errorf("chat stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "MESSAGES\t%d\n", stats.Total)
	fmt.Fprintf(w, "HUMAN\t%d\n", stats.Human)
	fmt.Fprintf(w, "AI\t%d\n", stats.AI)
	return w.Flush()
}
