package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/tasks"
)

var (
	errInvalidID     = apperr.Validation("invalid todo id")
	errInvalidPaging = apperr.Validation("page and limit must be positive integers")
	errMissingToggle = apperr.Validation("is_complete is required")
)

type createTodoRequest struct {
	Task        string `json:"task"`
	Description string `json:"description"`
}

type updateTodoRequest struct {
	Task        *string `json:"task"`
	Description *string `json:"description"`
	IsComplete  *bool   `json:"is_complete"`
}

type toggleTodoRequest struct {
	IsComplete *bool `json:"is_complete"`
}

func todoID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// queryInt parses an optional positive query parameter; absent means 0.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errInvalidPaging
	}
	return n, nil
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.tasks.List(r.Context(), auth.OwnerFrom(r.Context()), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := s.tasks.Create(r.Context(), auth.OwnerFrom(r.Context()), req.Task, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, task)
}

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := s.tasks.Get(r.Context(), auth.OwnerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := s.tasks.Update(r.Context(), auth.OwnerFrom(r.Context()), id, tasks.Patch{
		Title:       req.Task,
		Description: req.Description,
		Completed:   req.IsComplete,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tasks.Delete(r.Context(), auth.OwnerFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "todo deleted")
}

// handleToggleTodo takes the completion value the client currently shows
// and stores its negation.
func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req toggleTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IsComplete == nil {
		writeError(w, r, errMissingToggle)
		return
	}
	task, err := s.tasks.ToggleComplete(r.Context(), auth.OwnerFrom(r.Context()), id, *req.IsComplete)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, task)
}
