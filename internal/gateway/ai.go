package gateway

import "net/http"

type improveRequest struct {
	Task               string `json:"task"`
	CurrentDescription string `json:"currentDescription"`
}

type improveResponse struct {
	Description string `json:"description"`
}

// handleImproveDescription runs one enhancement. A client that disconnects
// cancels the model call through the request context.
func (s *Server) handleImproveDescription(w http.ResponseWriter, r *http.Request) {
	var req improveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	text, err := s.enhancer.Improve(r.Context(), req.Task, req.CurrentDescription)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, improveResponse{Description: text})
}
