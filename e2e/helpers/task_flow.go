// Command task_flow exercises the task lifecycle against a running gateway.
//
// It logs in over REST, subscribes to the WebSocket refresh channel, then
// creates, toggles and deletes a task, checking that every mutation is
// announced with a tasks.changed event.
//
// Usage: task_flow -gateway http://127.0.0.1:PORT -email a@b.c -password SECRET
//
// Exit codes:
//
//	0 = all checks passed
//	1 = a check failed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dohr-michael/todoia/clients/api"
	wsclient "github.com/dohr-michael/todoia/clients/ws"
	"github.com/dohr-michael/todoia/internal/events"
)

func main() {
	gatewayURL := flag.String("gateway", "http://127.0.0.1:18430", "Gateway base URL")
	email := flag.String("email", "e2e@example.com", "Account email")
	password := flag.String("password", "", "Account password")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *gatewayURL, *email, *password); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, gatewayURL, email, password string) error {
	client := api.NewClient(gatewayURL, "")
	if _, err := client.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Println("CHECK logged in")

	conn, err := wsclient.Dial(ctx, client.WebSocketURL(), client.Token())
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	fmt.Println("CHECK refresh channel open")

	task, err := client.CreateTask(ctx, "e2e task", "")
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if err := expectChange(ctx, conn, events.TaskOpCreate, task.ID); err != nil {
		return err
	}

	toggled, err := client.ToggleTask(ctx, task.ID, task.Completed)
	if err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	if !toggled.Completed {
		return fmt.Errorf("toggle did not complete task %d", task.ID)
	}
	if err := expectChange(ctx, conn, events.TaskOpToggle, task.ID); err != nil {
		return err
	}

	if err := client.DeleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := expectChange(ctx, conn, events.TaskOpDelete, task.ID); err != nil {
		return err
	}

	fmt.Println("CHECK all flow checks passed")
	return nil
}

// expectChange reads frames until the tasks.changed event for op and id.
func expectChange(ctx context.Context, conn *wsclient.Client, op events.TaskOp, id int64) error {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("timeout waiting for %s event", op)
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if events.EventType(frame.Event) != events.EventTasksChanged {
			continue
		}
		evt, err := wsclient.DecodePayload[events.Event](frame)
		if err != nil {
			continue
		}
		payload, ok := events.ExtractPayload[events.TasksChangedPayload](evt)
		if !ok || payload.TaskID != id || payload.Op != op {
			continue
		}
		fmt.Printf("CHECK %s event received for task %d\n", op, id)
		return nil
	}
}
