// Package api is a REST client for the todoia gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/chat"
	"github.com/dohr-michael/todoia/internal/sessions"
	"github.com/dohr-michael/todoia/internal/tasks"
)

// envelope mirrors the gateway's response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

// Client talks to one gateway with one access token.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for baseURL (e.g. http://127.0.0.1:8080).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// BaseURL returns the gateway root URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the current access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the access token used by later calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends one request and decodes the envelope's data into result.
// Failures reported by the gateway come back as *apperr.Error so callers
// can match them with errors.Is.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doWithToken(ctx, method, path, c.Token(), body, result)
}

func (c *Client) doWithToken(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &apperr.Error{Kind: apperr.KindInternal, Message: http.StatusText(resp.StatusCode), Status: resp.StatusCode}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		kind := apperr.Kind(env.Code)
		if kind == "" {
			kind = apperr.KindInternal
		}
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &apperr.Error{Kind: kind, Message: msg, Status: resp.StatusCode}
	}

	if result == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Health returns the gateway health report. /health answers with a bare
// JSON object rather than an envelope.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.Error{Kind: apperr.KindInternal, Message: http.StatusText(resp.StatusCode), Status: resp.StatusCode}
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return out, nil
}

// Login exchanges credentials for a session and starts using its access
// token.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	var out auth.LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.doWithToken(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Session.AccessToken)
	return &out, nil
}

// Refresh rotates the token pair and starts using the new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	var out auth.Session
	if err := c.doWithToken(ctx, http.MethodPost, "/auth/refresh", refreshToken, nil, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// ListTasks returns one page of the caller's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context, page, limit int) (*tasks.Page, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/todos"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out tasks.Page
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAllTasks walks every page.
func (c *Client) ListAllTasks(ctx context.Context) ([]tasks.Task, error) {
	var all []tasks.Task
	for page := 1; ; page++ {
		p, err := c.ListTasks(ctx, page, tasks.MaxLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if page >= p.Pagination.TotalPages || len(p.Data) == 0 {
			return all, nil
		}
	}
}

func taskPath(id int64) string {
	return "/todos/" + strconv.FormatInt(id, 10)
}

func (c *Client) GetTask(ctx context.Context, id int64) (*tasks.Task, error) {
	var out tasks.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, title, description string) (*tasks.Task, error) {
	var out tasks.Task
	body := map[string]string{"task": title, "description": description}
	if err := c.do(ctx, http.MethodPost, "/todos", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask applies patch; nil fields are left untouched.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch tasks.Patch) (*tasks.Task, error) {
	var out tasks.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleTask flips completion; current is the value the caller last saw.
func (c *Client) ToggleTask(ctx context.Context, id int64, current bool) (*tasks.Task, error) {
	var out tasks.Task
	body := map[string]bool{"is_complete": current}
	if err := c.do(ctx, http.MethodPost, taskPath(id)+"/toggle", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// ImproveDescription asks the gateway to draft or elaborate a description.
func (c *Client) ImproveDescription(ctx context.Context, title, current string) (string, error) {
	var out struct {
		Description string `json:"description"`
	}
	body := map[string]string{"task": title, "currentDescription": current}
	if err := c.do(ctx, http.MethodPost, "/ai/improve-description", body, &out); err != nil {
		return "", err
	}
	return out.Description, nil
}

// ChatAssistant sends a stateless message with prior turns.
func (c *Client) ChatAssistant(ctx context.Context, message string, history []chat.Turn) (chat.Reply, error) {
	var out chat.Reply
	body := map[string]any{"message": message, "history": history}
	if err := c.do(ctx, http.MethodPost, "/chat/assistant", body, &out); err != nil {
		return chat.Reply{}, err
	}
	return out, nil
}

// ChatSession sends a message to the caller's persisted conversation.
func (c *Client) ChatSession(ctx context.Context, message string) (chat.Reply, error) {
	var out chat.Reply
	if err := c.do(ctx, http.MethodPost, "/chat/session", map[string]string{"message": message}, &out); err != nil {
		return chat.Reply{}, err
	}
	return out, nil
}

func (c *Client) ChatHistory(ctx context.Context) ([]sessions.Message, error) {
	var out []sessions.Message
	if err := c.do(ctx, http.MethodGet, "/chat/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ClearChatHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/chat/history", nil, nil)
}

func (c *Client) ChatStats(ctx context.Context) (sessions.Stats, error) {
	var out sessions.Stats
	if err := c.do(ctx, http.MethodGet, "/chat/stats", nil, &out); err != nil {
		return sessions.Stats{}, err
	}
	return out, nil
}

// WebSocketURL returns the /ws endpoint for the gateway.
func (c *Client) WebSocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
