package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/clients/api"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/credential"
	"github.com/dohr-michael/todoia/internal/secrets"
)

// loadConfig reads the --config file, falling back to defaults when it does
// not exist, and decrypts any ENC[age:...] values.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		slog.Debug("config not found, using defaults", "path", configPath)
		cfg = config.Default()
	}
	if err := secrets.Unlock(cfg, secrets.KeyPath()); err != nil {
		return nil, fmt.Errorf("unlock secrets: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the default slog handler. --debug wins over the
// configured level.
func setupLogging(cmd *cli.Command, cfg config.LogConfig, w io.Writer) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// serverURL resolves the gateway URL: --server, then the stored session,
// then the configured listen address.
func serverURL(cmd *cli.Command, sess *credential.Session) string {
	if cmd.IsSet("server") {
		return strings.TrimRight(cmd.String("server"), "/")
	}
	if sess != nil && sess.Server != "" {
		return sess.Server
	}
	return strings.TrimRight(cmd.String("server"), "/")
}

// defaultServerURL is the gateway address of a default local config.
func defaultServerURL() string {
	cfg := config.Default()
	return fmt.Sprintf("http://%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
}

// authedClient returns an API client carrying the stored access token,
// refreshing it first when it expired.
func authedClient(ctx context.Context, cmd *cli.Command) (*api.Client, *credential.Session, error) {
	store, err := credential.Open()
	if err != nil {
		return nil, nil, err
	}
	sess, err := store.Load()
	if err != nil {
		return nil, nil, err
	}

	client := api.NewClient(serverURL(cmd, sess), sess.AccessToken)
	if !sess.Expired(time.Now()) {
		return client, sess, nil
	}

	slog.Debug("access token expired, refreshing", "server", client.BaseURL())
	renewed, err := client.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("session expired, log in again: %w", err)
	}
	sess.AccessToken = renewed.AccessToken
	sess.RefreshToken = renewed.RefreshToken
	sess.ExpiresAt = renewed.ExpiresAt
	if err := store.Save(*sess); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	return client, sess, nil
}
