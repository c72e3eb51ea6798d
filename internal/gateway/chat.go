package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/chat"
	"github.com/dohr-michael/todoia/internal/sessions"
)

var (
	errWebhookUnauthorized = apperr.Unauthenticated("unauthorized")
	errHistoryFields       = apperr.Validation("session_id and message_content are required")
)

type chatRequest struct {
	Message string `json:"message"`
}

type assistantRequest struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

// chatHistoryRequest is the write-back body of the automation workflow.
type chatHistoryRequest struct {
	SessionID        string         `json:"session_id"`
	MessageContent   string         `json:"message_content"`
	MessageType      string         `json:"message_type"`
	AdditionalKwargs map[string]any `json:"additional_kwargs"`
	ResponseMetadata map[string]any `json:"response_metadata"`
}

func (s *Server) handleChatStatus(w http.ResponseWriter, _ *http.Request) {
	status := "chat webhook is not configured"
	if s.chat.WebhookConfigured() {
		status = "chat webhook is ready"
	}
	writeData(w, http.StatusOK, map[string]any{
		"status":     status,
		"configured": s.chat.WebhookConfigured(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleChatForward(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.chat.Forward(r.Context(), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reply)
}

// handleChatAssistant never fails once the request is valid: the
// coordinator answers with a canned reply when the model cannot.
func (s *Server) handleChatAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, chat.ErrMissingMessage)
		return
	}
	writeData(w, http.StatusOK, s.chat.Ask(r.Context(), req.Message, req.History))
}

func (s *Server) handleChatSession(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.chat.Send(r.Context(), auth.OwnerFrom(r.Context()), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reply)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.History(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []sessions.Message{}
	}
	writeData(w, http.StatusOK, msgs)
}

func (s *Server) handleClearChatHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Clear(r.Context(), auth.OwnerFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "chat history cleared")
}

func (s *Server) handleChatStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.chat.Stats(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// handleChatHistoryWebhook stores a message pushed by the workflow. When a
// webhook token is configured the caller must present it as bearer.
func (s *Server) handleChatHistoryWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookToken != "" {
		got := bearerToken(r)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.webhookToken)) != 1 {
			writeError(w, r, errWebhookUnauthorized)
			return
		}
	}

	var req chatHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.SessionID == "" || req.MessageContent == "" {
		writeError(w, r, errHistoryFields)
		return
	}
	if req.MessageType == "" {
		req.MessageType = string(sessions.TypeAI)
	}

	err := s.chat.Record(r.Context(), req.SessionID, sessions.Message{
		Type:             sessions.MessageType(req.MessageType),
		Content:          req.MessageContent,
		AdditionalKwargs: req.AdditionalKwargs,
		ResponseMetadata: req.ResponseMetadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "message saved")
}
