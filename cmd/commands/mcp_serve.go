package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/internal/events"
	todoiamcp "github.com/dohr-michael/todoia/internal/mcp"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose the task tools as an MCP server (stdio)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "filter",
				UsageText: "Tool or group name to expose (empty = all)",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Account whose tasks the tools operate on",
				Sources:  cli.EnvVars("TODOIA_MCP_EMAIL"),
				Required: true,
			},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP stdio transport
	if !cmd.Bool("debug") && cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	setupLogging(cmd, cfg.Log, os.Stderr)

	bus := events.NewBus(64)
	defer bus.Close()

	svc, err := openServices(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer svc.Close()

	owner, err := svc.auth.UserByEmail(ctx, cmd.String("email"))
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	filter := cmd.StringArg("filter")
	slog.Debug("starting MCP server", "filter", filter, "owner", owner.Email)

	server := todoiamcp.NewMCPServer(todoiamcp.Deps{
		Tasks:    svc.tasks,
		Enhancer: svc.enhancer,
		Owner:    owner.ID,
		Version:  Version,
	}, filter)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
