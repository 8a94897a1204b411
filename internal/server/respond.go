package server

import (
	"encoding/json"
	"net/http"
)

// errorResponse matches the error body API clients look for.
type errorResponse struct {
	Detail string `json:"detail"`
}

// respondJSON writes a JSON response with the given status code and payload.
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already sent
		s.logger.Error().Err(err).Msg("unable to encode response")
	}
}

// respondDetail writes an error response carrying detail.
func (s *Server) respondDetail(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, errorResponse{Detail: detail})
}
