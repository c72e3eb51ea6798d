// Package tasks implements the owner-scoped task list: persistence and the
// mutation façade used by the gateway, the MCP tools and the CLI.
package tasks

import "time"

// Task is one user-owned to-do item. JSON names follow the REST wire format.
type Task struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"task" json:"task"`
	Description string    `db:"description" json:"description"`
	Completed   bool      `db:"is_complete" json:"is_complete"`
	Owner       string    `db:"user_id" json:"user_id"`
	CreatedAt   time.Time `db:"inserted_at" json:"inserted_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"task,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"is_complete,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Pagination describes one page of a task listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a page of tasks, newest first.
type Page struct {
	Data       []Task     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)
