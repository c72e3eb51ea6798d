package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/chat"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/events"
	"github.com/dohr-michael/todoia/internal/gateway/ws"
	"github.com/dohr-michael/todoia/internal/tasks"
)

// Deps groups everything the gateway serves. All fields are required
// except WebhookToken; an empty token leaves /webhooks/chat-history open.
type Deps struct {
	Config       config.GatewayConfig
	Tasks        *tasks.Service
	Auth         *auth.Service
	Enhancer     *enhance.Enhancer
	Chat         *chat.Coordinator
	Bus          *events.Bus
	WebhookToken string
}

// Server is the todoia HTTP gateway.
type Server struct {
	httpServer   *http.Server
	hub          *ws.Hub
	tasks        *tasks.Service
	auth         *auth.Service
	enhancer     *enhance.Enhancer
	chat         *chat.Coordinator
	webhookToken string
	environment  string
	wsOrigins    []string
	started      time.Time
}

// NewServer creates a new gateway server.
func NewServer(deps Deps) *Server {
	s := &Server{
		hub:          ws.NewHub(deps.Bus),
		tasks:        deps.Tasks,
		auth:         deps.Auth,
		enhancer:     deps.Enhancer,
		chat:         deps.Chat,
		webhookToken: deps.WebhookToken,
		environment:  deps.Config.Environment,
		wsOrigins:    deps.Config.CORSOrigins,
		started:      time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors(deps.Config.CORSOrigins))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.With(s.requireAuth).Post("/auth/logout", s.handleLogout)

	// Anonymous webhook proxy and the inbound write-back of the workflow.
	r.Get("/chat", s.handleChatStatus)
	r.Post("/chat", s.handleChatForward)
	r.Post("/webhooks/chat-history", s.handleChatHistoryWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", s.handleListTodos)
			r.Post("/", s.handleCreateTodo)
			r.Get("/{id}", s.handleGetTodo)
			r.Put("/{id}", s.handleUpdateTodo)
			r.Delete("/{id}", s.handleDeleteTodo)
			r.Post("/{id}/toggle", s.handleToggleTodo)
		})

		r.Post("/ai/improve-description", s.handleImproveDescription)

		r.Post("/chat/assistant", s.handleChatAssistant)
		r.Post("/chat/session", s.handleChatSession)
		r.Get("/chat/history", s.handleChatHistory)
		r.Delete("/chat/history", s.handleClearChatHistory)
		r.Get("/chat/stats", s.handleChatStats)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", deps.Config.Host, deps.Config.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins listening. It blocks until the server is stopped.
// Handler returns the router, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("todoia gateway listening", "addr", ln.Addr().String(), "environment", s.environment)
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(s.started).Seconds(),
		"environment": s.environment,
	})
}

// handleWS authenticates with the bearer header or, for browsers that
// cannot set headers on upgrades, the ?token= query parameter.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, r, errMissingToken)
		return
	}
	id, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.ServeWS(w, r, id.ID, &websocket.AcceptOptions{OriginPatterns: s.wsOrigins})
}
