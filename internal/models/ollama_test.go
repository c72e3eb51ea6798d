package models

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dohr-michael/todoia/internal/config"
)

// roundTrip sends one request through an ollamaTransport to a server
// answering with h.
func roundTrip(t *testing.T, h http.HandlerFunc) (*http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	tr := &ollamaTransport{inner: http.DefaultTransport, provider: "local"}
	return tr.RoundTrip(req)
}

func TestOllamaTransport_PassesJSONThrough(t *testing.T) {
	resp, err := roundTrip(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"message":{"content":"ok"}}`)
	})
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("body = %q", body)
	}
}

func TestOllamaTransport_ProxyPageIsUnavailable(t *testing.T) {
	_, err := roundTrip(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html>no available server</html>")
	})

	var unavail *ErrModelUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if unavail.Provider != "local" || !strings.Contains(unavail.Body, "no available server") {
		t.Errorf("unexpected %+v", unavail)
	}
}

func TestOllamaTransport_StatusErrorIsUnavailable(t *testing.T) {
	_, err := roundTrip(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error":"model is loading"}`)
	})

	var unavail *ErrModelUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if !strings.Contains(unavail.Error(), "model is loading") {
		t.Errorf("Error() = %q", unavail.Error())
	}
}

func TestOllamaTransport_RefusedConnectionKeepsCause(t *testing.T) {
	tr := &ollamaTransport{inner: http.DefaultTransport, provider: "local"}
	req, _ := http.NewRequest(http.MethodPost, "http://127.0.0.1:1/api/chat", nil)

	_, err := tr.RoundTrip(req)
	var unavail *ErrModelUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if unavail.Cause == nil || errors.Unwrap(unavail) == nil {
		t.Error("cause should be kept and unwrappable")
	}
}

func TestNewOllama(t *testing.T) {
	m, err := NewOllama(context.Background(), config.ProviderConfig{
		Driver:  "ollama",
		Model:   "llama3.2",
		Options: map[string]any{"temperature": 0.2, "num_ctx": float64(4096)},
	})
	if err != nil {
		t.Fatalf("NewOllama: %v", err)
	}
	if m == nil {
		t.Fatal("expected a model")
	}
}
