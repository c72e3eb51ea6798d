package gateway

import (
	"net/http"

	"github.com/dohr-michael/todoia/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestLogger(r).Info("user logged in", "user_id", result.User.ID)
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "logged out")
}

// handleRefresh takes the refresh token as bearer, falling back to the JSON
// body.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}
	sess, err := s.auth.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sess)
}
