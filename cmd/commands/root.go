package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/internal/config"
)

// Version is set at build time.
var Version = "dev"

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "todoia",
		Usage:   "Tasks with an AI assistant",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Gateway URL used by client commands",
				Value:   defaultServerURL(),
				Sources: cli.EnvVars("TODOIA_SERVER"),
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
			NewStatusCommand(),
			NewUsersCommand(),
			NewLoginCommand(),
			NewLogoutCommand(),
			NewTasksCommand(),
			NewChatCommand(),
			NewBoardCommand(),
			NewMCPServeCommand(),
			NewSecretsCommand(),
			NewMaintenanceCommand(),
		},
	}
}
