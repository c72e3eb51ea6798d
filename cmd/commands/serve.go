package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/callbacks"
	"github.com/dohr-michael/todoia/internal/chat"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/events"
	"github.com/dohr-michael/todoia/internal/gateway"
	"github.com/dohr-michael/todoia/internal/heartbeat"
	"github.com/dohr-michael/todoia/internal/models"
	"github.com/dohr-michael/todoia/internal/sessions"
	"github.com/dohr-michael/todoia/internal/storage"
	"github.com/dohr-michael/todoia/internal/tasks"
)

const eventBufferSize = 1024

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the todoia gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

// services are the server-side components shared by serve, mcp-serve and
// maintenance. Model calls are metered into model_usage.
type services struct {
	db       *sqlx.DB
	registry *models.Registry
	usage    *storage.UsageTracker
	tasks    *tasks.Service
	auth     *auth.Service
	enhancer *enhance.Enhancer
}

func openServices(ctx context.Context, cfg *config.Config, bus *events.Bus) (*services, error) {
	db, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	registry := models.NewRegistry(cfg.Models)
	registry.Use(callbacks.NewModelHandler(bus))
	return &services{
		db:       db,
		registry: registry,
		usage:    storage.NewUsageTracker(db, bus),
		tasks:    tasks.NewService(tasks.NewSQLiteStore(db), bus),
		auth:     auth.NewService(db, cfg.Auth.AccessTTL.Duration(), cfg.Auth.RefreshTTL.Duration()),
		enhancer: enhance.New(registry, cfg.Enhance),
	}, nil
}

func (s *services) Close() error {
	s.usage.Close()
	return s.db.Close()
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg.Log, os.Stderr)

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	bus := events.NewBus(eventBufferSize)
	defer bus.Close()

	svc, err := openServices(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc.registry.Warm(ctx)

	eventLog := storage.NewEventLogger(filepath.Join(config.HomePath(), "logs"), bus)
	defer eventLog.Close()

	coordinator := chat.NewCoordinator(cfg.Chat, chat.Deps{
		Models:  svc.registry,
		Webhook: chat.NewWebhook(cfg.Chat.WebhookURL, cfg.Chat.WebhookToken, cfg.Chat.Timeout.Duration()),
		History: sessions.NewSQLiteStore(svc.db),
		Bus:     bus,
	})
	if !coordinator.WebhookConfigured() {
		slog.Warn("chat webhook not configured, session chat will answer with fallbacks")
	}

	sched, err := newMaintenanceScheduler(cfg, svc.auth, bus)
	if err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop()

	server := gateway.NewServer(gateway.Deps{
		Config:       cfg.Gateway,
		Tasks:        svc.tasks,
		Auth:         svc.auth,
		Enhancer:     svc.enhancer,
		Chat:         coordinator,
		Bus:          bus,
		WebhookToken: cfg.Chat.WebhookToken,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	hb := heartbeat.NewWriter(heartbeat.Path(), addr, cfg.Gateway.Environment)
	if err := hb.Start(ctx); err != nil {
		slog.Warn("heartbeat disabled", "error", err)
	}
	defer hb.Stop()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
