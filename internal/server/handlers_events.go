package server

import (
	"errors"
	"net/http"
	"strings"

	"field/board/internal/schedule"

	"github.com/go-chi/chi/v5"
)

// handleAdjustEvent godoc
// @Title Adjust event
// @Description Applies a manual drag/resize edit to one event and recomputes KPIs.
// @Resource Sessions
// @Accept json
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/events/{eventID} [patch]
func (s *Server) handleAdjustEvent(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	eventID := strings.TrimSpace(chi.URLParam(r, "eventID"))
	if eventID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid event id", "missing id")
		return
	}

	var req AdjustEventRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Edits apply to the schedule currently on screen: the optimized one
	// when a run (or simulation) has produced it, the baseline otherwise.
	current := sess.optimized
	onOptimized := current != nil
	if !onOptimized {
		current = sess.baseline
	}

	adjusted, err := schedule.ApplyAdjustment(current, eventID, req.Start, req.End, req.ResourceID)
	if err != nil {
		if errors.Is(err, schedule.ErrEventNotFound) {
			s.writeError(w, http.StatusNotFound, errEventNotFound, eventID)
			return
		}
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	if onOptimized {
		sess.optimized = adjusted
	} else {
		sess.baseline = adjusted
	}

	// Full synchronous recompute, never an incremental patch.
	kpis, err := schedule.ComputeKpis(sess.model, sess.plan)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to compute KPIs", err.Error())
		return
	}
	sess.kpis = kpis

	s.log.Info().
		Str("session_id", sess.ID).
		Str("event_id", eventID).
		Msg("event adjusted")

	s.writeJSON(w, http.StatusOK, SessionResponse{
		ID:          sess.ID,
		DatasetID:   sess.DatasetID,
		DatasetName: sess.model.Name,
		Warning:     sess.Warning,
		CreatedAt:   sess.CreatedAt,
		Baseline:    sess.baseline,
		Optimized:   sess.optimized,
		Kpis:        newKpiResponse(sess.kpis),
		Run:         sess.run,
	})
}
