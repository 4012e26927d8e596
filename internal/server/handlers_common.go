package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type APIError struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

const (
	errInvalidPayload   = "invalid payload"
	errInvalidSessionID = "invalid session id"
	errSessionNotFound  = "session not found"
	errEventNotFound    = "event not found"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, details interface{}) {
	s.writeJSON(w, status, APIError{Error: message, Details: details})
}

func (s *Server) decodeAndValidate(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := s.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// sessionFromRequest resolves the sessionID path parameter to a live session.
// It writes the error response itself and returns nil on failure.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) *session {
	raw := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, errInvalidSessionID, "missing id")
		return nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidSessionID, err.Error())
		return nil
	}
	sess, ok := s.sessions.get(raw)
	if !ok {
		s.writeError(w, http.StatusNotFound, errSessionNotFound, raw)
		return nil
	}
	return sess
}
