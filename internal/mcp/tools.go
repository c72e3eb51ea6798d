package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/tasks"
)

const (
	GroupTasks = "tasks"
	GroupAI    = "ai"
)

type runFunc func(ctx context.Context, args json.RawMessage) (any, error)

type tool struct {
	spec ToolSpec
	run  runFunc
}

var idParam = ParamSpec{Type: "integer", Description: "Task id", Required: true}

// decodeArgs unmarshals tool arguments; empty arguments leave v untouched.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperr.Validation(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// taskTools builds the tools acting on owner's tasks.
func taskTools(svc *tasks.Service, owner string) []tool {
	return []tool{
		{
			spec: ToolSpec{
				Name:        "list_tasks",
				Group:       GroupTasks,
				Description: "List tasks, newest first, one page at a time.",
				Parameters: map[string]ParamSpec{
					"page":  {Type: "integer", Description: "Page number, starting at 1", Default: 1},
					"limit": {Type: "integer", Description: "Page size (1-100)", Default: tasks.DefaultLimit},
				},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					Page  int `json:"page"`
					Limit int `json:"limit"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return svc.List(ctx, owner, in.Page, in.Limit)
			},
		},
		{
			spec: ToolSpec{
				Name:        "get_task",
				Group:       GroupTasks,
				Description: "Get one task by id.",
				Parameters:  map[string]ParamSpec{"id": idParam},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					ID int64 `json:"id"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return svc.Get(ctx, owner, in.ID)
			},
		},
		{
			spec: ToolSpec{
				Name:        "create_task",
				Group:       GroupTasks,
				Description: "Create a task. The description may use markdown.",
				Parameters: map[string]ParamSpec{
					"task":        {Type: "string", Description: "Task title", Required: true},
					"description": {Type: "string", Description: "Optional markdown description"},
				},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					Task        string `json:"task"`
					Description string `json:"description"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return svc.Create(ctx, owner, in.Task, in.Description)
			},
		},
		{
			spec: ToolSpec{
				Name:        "update_task",
				Group:       GroupTasks,
				Description: "Change the title, description or completion of a task. Omitted fields are kept.",
				Parameters: map[string]ParamSpec{
					"id":          idParam,
					"task":        {Type: "string", Description: "New title"},
					"description": {Type: "string", Description: "New markdown description"},
					"is_complete": {Type: "boolean", Description: "New completion state"},
				},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					ID          int64   `json:"id"`
					Task        *string `json:"task"`
					Description *string `json:"description"`
					IsComplete  *bool   `json:"is_complete"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return svc.Update(ctx, owner, in.ID, tasks.Patch{
					Title:       in.Task,
					Description: in.Description,
					Completed:   in.IsComplete,
				})
			},
		},
		{
			spec: ToolSpec{
				Name:        "toggle_task",
				Group:       GroupTasks,
				Description: "Flip the completion of a task. Pass the completion value you last saw.",
				Parameters: map[string]ParamSpec{
					"id":          idParam,
					"is_complete": {Type: "boolean", Description: "Current completion state", Required: true},
				},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					ID         int64 `json:"id"`
					IsComplete bool  `json:"is_complete"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return svc.ToggleComplete(ctx, owner, in.ID, in.IsComplete)
			},
		},
		{
			spec: ToolSpec{
				Name:        "delete_task",
				Group:       GroupTasks,
				Description: "Delete a task.",
				Parameters:  map[string]ParamSpec{"id": idParam},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					ID int64 `json:"id"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				if err := svc.Delete(ctx, owner, in.ID); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": in.ID}, nil
			},
		},
	}
}

// aiTools builds the description helper.
func aiTools(e *enhance.Enhancer) []tool {
	return []tool{{
		spec: ToolSpec{
			Name:        "improve_description",
			Group:       GroupAI,
			Description: "Draft or improve a markdown description explaining how to carry out a task.",
			Parameters: map[string]ParamSpec{
				"task":                {Type: "string", Description: "Task title", Required: true},
				"current_description": {Type: "string", Description: "Existing description to elaborate on"},
			},
		},
		run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Task    string `json:"task"`
				Current string `json:"current_description"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			text, err := e.Improve(ctx, in.Task, in.Current)
			if err != nil {
				return nil, err
			}
			return map[string]string{"description": text}, nil
		},
	}}
}
