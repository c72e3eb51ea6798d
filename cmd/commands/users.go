package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/todoia/internal/events"
)

// NewUsersCommand returns the users subcommand.
func NewUsersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage local accounts",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create an account in the configured database",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Action: runUsersAdd,
			},
		},
	}
}

func runUsersAdd(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("usage: todoia users add <email>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg.Log, os.Stderr)

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return errors.New("passwords do not match")
		}
	}

	bus := events.NewBus(16)
	defer bus.Close()

	svc, err := openServices(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer svc.Close()

	user, err := svc.auth.CreateUser(ctx, email, password)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("Created %s (%s)\n", user.Email, user.ID)
	return nil
}

// readPassword prompts without echo on a terminal and reads a single line
// otherwise, so passwords can be piped in.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
