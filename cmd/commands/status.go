package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/clients/api"
	"github.com/dohr-michael/todoia/internal/credential"
	"github.com/dohr-michael/todoia/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show gateway health and the logged-in user",
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	status, hb, err := heartbeat.Check(heartbeat.Path(), 2*heartbeat.DefaultInterval)
	if err != nil {
		return fmt.Errorf("check heartbeat: %w", err)
	}
	switch status {
	case heartbeat.StatusAlive:
		fmt.Printf("Local:   ALIVE (PID %d on %s, uptime %s)\n", hb.PID, hb.Addr, hb.Uptime())
	case heartbeat.StatusStale:
		fmt.Printf("Local:   STALE (PID %d, last heartbeat %s ago)\n",
			hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
	default:
		fmt.Println("Local:   NOT RUNNING")
	}

	var sess *credential.Session
	if store, err := credential.Open(); err == nil {
		sess, _ = store.Load()
	}

	client := api.NewClient(serverURL(cmd, sess), "")
	health, err := client.Health(ctx)
	if err != nil {
		fmt.Printf("Gateway: UNREACHABLE (%s): %v\n", client.BaseURL(), err)
	} else {
		fmt.Printf("Gateway: %v (%s, %v)\n", health["status"], client.BaseURL(), health["environment"])
	}

	if sess == nil {
		fmt.Println("User:    not logged in")
		return nil
	}
	fmt.Printf("User:    %s\n", sess.Email)
	return nil
}
