package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/todoia/clients/tui/components"
	"github.com/dohr-michael/todoia/internal/tasks"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage your tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
					&cli.IntFlag{Name: "limit", Value: tasks.DefaultLimit, Usage: "Tasks per page"},
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "List every page"},
					outputFlag(),
				},
				Action: runTasksList,
			},
			{
				Name:  "add",
				Usage: "Create a task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "title"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Task description"},
					&cli.BoolFlag{Name: "improve", Usage: "Draft the description with the model"},
				},
				Action: runTasksAdd,
			},
			{
				Name:      "show",
				Usage:     "Show a task with its rendered description",
				Arguments: idArg,
				Flags:     []cli.Flag{outputFlag()},
				Action:    runTasksShow,
			},
			{
				Name:      "edit",
				Usage:     "Change a task's title or description",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
				},
				Action: runTasksEdit,
			},
			{
				Name:      "done",
				Usage:     "Toggle a task's completion",
				Arguments: idArg,
				Action:    runTasksDone,
			},
			{
				Name:      "rm",
				Usage:     "Delete a task",
				Arguments: idArg,
				Action:    runTasksRemove,
			},
			{
				Name:      "improve",
				Usage:     "Draft an improved description for a task",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "apply", Usage: "Save the draft as the task's description"},
				},
				Action: runTasksImprove,
			},
		},
		DefaultCommand: "list",
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format: table, json or yaml",
		Value:   "table",
	}
}

// taskDoc is the YAML rendering of a task.
type taskDoc struct {
	ID          int64     `yaml:"id"`
	Title       string    `yaml:"task"`
	Description string    `yaml:"description,omitempty"`
	Completed   bool      `yaml:"is_complete"`
	CreatedAt   time.Time `yaml:"inserted_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

func toDoc(t tasks.Task) taskDoc {
	return taskDoc{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// writeStructured prints v as json or yaml. It reports false for the table
// format.
func writeStructured(format string, jsonValue, yamlValue any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return true, enc.Encode(jsonValue)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(yamlValue)
	case "", "table":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q", format)
	}
}

func parseID(cmd *cli.Command) (int64, error) {
	raw := cmd.StringArg("id")
	if raw == "" {
		return 0, fmt.Errorf("usage: todoia tasks %s <id>", cmd.Name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}

	var (
		list  []tasks.Task
		pager *tasks.Pagination
	)
	if cmd.Bool("all") {
		list, err = client.ListAllTasks(ctx)
	} else {
		var page *tasks.Page
		page, err = client.ListTasks(ctx, cmd.Int("page"), cmd.Int("limit"))
		if page != nil {
			list, pager = page.Data, &page.Pagination
		}
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	docs := make([]taskDoc, len(list))
	for i, t := range list {
		docs[i] = toDoc(t)
	}
	if done, err := writeStructured(cmd.String("output"), list, docs); done {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tCREATED\tTITLE")
	for _, t := range list {
		done := " "
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(w, "%d\t[%s]\t%s\t%s\n", t.ID, done, t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if pager != nil && pager.TotalPages > 1 {
		fmt.Printf("\npage %d/%d (%d tasks)\n", pager.Page, pager.TotalPages, pager.Total)
	}
	return nil
}

func runTasksAdd(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("usage: todoia tasks add <title>")
	}
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}

	description := cmd.String("description")
	if cmd.Bool("improve") {
		description, err = client.ImproveDescription(ctx, title, description)
		if err != nil {
			return fmt.Errorf("improve description: %w", err)
		}
	}

	t, err := client.CreateTask(ctx, title, description)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Printf("Created task %d: %s\n", t.ID, t.Title)
	return nil
}

func runTasksShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	t, err := client.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if done, err := writeStructured(cmd.String("output"), t, toDoc(*t)); done {
		return err
	}

	status := "open"
	if t.Completed {
		status = "done"
	}
	fmt.Printf("#%d %s [%s]\n", t.ID, t.Title, status)
	fmt.Printf("created %s, updated %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if t.Description != "" {
		fmt.Println(components.RenderMarkdown(t.Description, 80))
	}
	return nil
}

func runTasksEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	var patch tasks.Patch
	if cmd.IsSet("title") {
		title := cmd.String("title")
		patch.Title = &title
	}
	if cmd.IsSet("description") {
		desc := cmd.String("description")
		patch.Description = &desc
	}
	if patch.Empty() {
		return errors.New("nothing to change: pass --title or --description")
	}

	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	t, err := client.UpdateTask(ctx, id, patch)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	fmt.Printf("Updated task %d: %s\n", t.ID, t.Title)
	return nil
}

func runTasksDone(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	current, err := client.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	t, err := client.ToggleTask(ctx, id, current.Completed)
	if err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}
	if t.Completed {
		fmt.Printf("Task %d done.\n", t.ID)
	} else {
		fmt.Printf("Task %d reopened.\n", t.ID)
	}
	return nil
}

func runTasksRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	if err := client.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	fmt.Printf("Deleted task %d.\n", id)
	return nil
}

func runTasksImprove(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	client, _, err := authedClient(ctx, cmd)
	if err != nil {
		return err
	}
	t, err := client.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	draft, err := client.ImproveDescription(ctx, t.Title, t.Description)
	if err != nil {
		return fmt.Errorf("improve description: %w", err)
	}

	if !cmd.Bool("apply") {
		fmt.Println(components.RenderMarkdown(draft, 80))
		return nil
	}
	if _, err := client.UpdateTask(ctx, id, tasks.Patch{Description: &draft}); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	fmt.Printf("Description of task %d updated.\n", id)
	return nil
}
