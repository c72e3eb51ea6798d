package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/clients/api"
	"github.com/dohr-michael/todoia/internal/credential"
)

// NewLoginCommand returns the login subcommand.
func NewLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate against a gateway and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (prompted when omitted)",
			},
		},
		Action: runLogin,
	}
}

// NewLogoutCommand returns the logout subcommand.
func NewLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the stored session",
		Action: runLogout,
	}
}

func runLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		fmt.Fprint(os.Stderr, "Email: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	store, err := credential.Open()
	if err != nil {
		return err
	}

	client := api.NewClient(strings.TrimRight(cmd.String("server"), "/"), "")
	res, err := client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	err = store.Save(credential.Session{
		Server:       client.BaseURL(),
		Email:        res.User.Email,
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
		ExpiresAt:    res.Session.ExpiresAt,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s on %s\n", res.User.Email, client.BaseURL())
	return nil
}

func runLogout(ctx context.Context, cmd *cli.Command) error {
	store, err := credential.Open()
	if err != nil {
		return err
	}
	sess, err := store.Load()
	if errors.Is(err, credential.ErrNotLoggedIn) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	// The local session is cleared even when the gateway is unreachable.
	client := api.NewClient(serverURL(cmd, sess), sess.AccessToken)
	if err := client.Logout(ctx); err != nil {
		slog.Warn("server logout failed", "error", err)
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}
