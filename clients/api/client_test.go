package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/tasks"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_ErrorEnvelopeBecomesAppError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, map[string]any{
			"success": false, "data": nil, "error": "task not found", "code": "not_found",
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "tok").GetTask(context.Background(), 7)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if apperr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("status = %d", apperr.StatusOf(err))
	}
	if apperr.MessageOf(err) != "task not found" {
		t.Fatalf("message = %q", apperr.MessageOf(err))
	}
}

func TestClient_NonJSONErrorKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").DeleteTask(context.Background(), 1)
	if apperr.StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("expected 502, got %v", err)
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": nil})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "abc")
	if err := c.ClearChatHistory(context.Background()); err != nil {
		t.Fatalf("ClearChatHistory: %v", err)
	}
	if got != "Bearer abc" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestClient_LoginStoresAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not send a token")
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"user":    map[string]any{"id": "u1", "email": "alice@example.com"},
				"session": map[string]any{"access_token": "acc", "refresh_token": "ref"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stale")
	res, err := c.Login(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != "u1" || c.Token() != "acc" {
		t.Fatalf("unexpected login result %+v, token %q", res, c.Token())
	}
}

func TestClient_ListAllTasksWalksPages(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		n, _ := strconv.Atoi(page)
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"data":       []map[string]any{{"id": 10 - n, "task": "t" + page}},
				"pagination": map[string]any{"page": n, "limit": tasks.MaxLimit, "total": 2, "totalPages": 2},
			},
		})
	}))
	defer srv.Close()

	all, err := NewClient(srv.URL, "tok").ListAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ListAllTasks: %v", err)
	}
	if len(all) != 2 || all[0].Title != "t1" || all[1].Title != "t2" {
		t.Fatalf("unexpected tasks %+v", all)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 page requests, got %v", pages)
	}
}

func TestClient_WebSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://127.0.0.1:8080": "ws://127.0.0.1:8080/ws",
		"https://todo.example":  "wss://todo.example/ws",
	}
	for in, want := range cases {
		if got := NewClient(in, "").WebSocketURL(); got != want {
			t.Errorf("WebSocketURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClient_HealthReadsBareObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"status": "healthy", "environment": "test"})
	}))
	defer srv.Close()

	health, err := NewClient(srv.URL, "").Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health["status"] != "healthy" {
		t.Fatalf("unexpected health %v", health)
	}
}
