package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/events"
	"github.com/dohr-michael/todoia/internal/scheduler"
	"github.com/dohr-michael/todoia/internal/storage"
)

// NewMaintenanceCommand returns the maintenance subcommand.
func NewMaintenanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "maintenance",
		Usage: "Inspect and run housekeeping jobs",
		Commands: []*cli.Command{
			{
				Name:   "jobs",
				Usage:  "List scheduled jobs",
				Action: runMaintenanceJobs,
			},
			{
				Name:   "purge",
				Usage:  "Delete expired auth sessions now",
				Action: runMaintenancePurge,
			},
			{
				Name:  "usage",
				Usage: "Show hosted model token usage per account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Only this account"},
				},
				Action: runMaintenanceUsage,
			},
		},
		DefaultCommand: "jobs",
	}
}

func newMaintenanceScheduler(cfg *config.Config, purger scheduler.SessionPurger, bus *events.Bus) (*scheduler.Scheduler, error) {
	sched := scheduler.New()
	if err := sched.Add(scheduler.PurgeJobName, cfg.Maintenance.PurgeSchedule, scheduler.PurgeSessions(purger, bus)); err != nil {
		return nil, fmt.Errorf("schedule purge: %w", err)
	}
	return sched, nil
}

func runMaintenanceJobs(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sched, err := newMaintenanceScheduler(cfg, nil, nil)
	if err != nil {
		return err
	}

	entries := sched.Entries()
	if len(entries) == 0 {
		fmt.Println("No scheduled jobs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tCRON")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Cron)
	}
	return w.Flush()
}

func runMaintenancePurge(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg.Log, os.Stderr)

	bus := events.NewBus(16)
	defer bus.Close()

	svc, err := openServices(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.auth.PurgeExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	fmt.Printf("%d expired session(s) purged.\n", n)
	return nil
}

func runMaintenanceUsage(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg.Log, os.Stderr)

	db, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var owner string
	if email := cmd.String("email"); email != "" {
		user, err := auth.NewService(db, 0, 0).UserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", email, err)
		}
		owner = user.ID
	}

	rows, err := storage.ListUsage(ctx, db, owner)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No model usage recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tPROVIDER\tCALLS\tINPUT\tOUTPUT\tUPDATED")
	for _, r := range rows {
		user := r.Owner
		if user == "" {
			user = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			user, r.Provider, r.Calls, r.TokensInput, r.TokensOutput, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
