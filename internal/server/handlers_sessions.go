package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"field/board/internal/schedule"

	"github.com/google/uuid"
)

// handleCreateSession godoc
// @Title Create session
// @Description Loads a dataset, builds the baseline schedule and initial KPIs.
// @Resource Sessions
// @Accept json
// @Produce json
// @Success 201 {object} SessionResponse
// @Failure 400 {object} APIError
// @Failure 502 {object} APIError
// @Route /v1/sessions [post]
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := s.decodeAndValidate(r, &req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
			return
		}
	}

	model, datasetID, warning, err := s.loadDataset(r.Context(), req.DatasetID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "failed to load dataset", err.Error())
		return
	}

	baseline, err := s.mapper.BuildBaselineSchedule(model)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to build baseline schedule", err.Error())
		return
	}
	kpis, err := schedule.ComputeKpis(model, nil)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to compute KPIs", err.Error())
		return
	}

	sess := &session{
		ID:        uuid.New().String(),
		DatasetID: datasetID,
		Warning:   warning,
		CreatedAt: time.Now().UTC(),
		model:     model,
		baseline:  baseline,
		kpis:      kpis,
		run:       runState{Phase: runPhaseIdle},
	}
	s.sessions.put(sess)

	s.log.Info().
		Str("session_id", sess.ID).
		Str("dataset_id", datasetID).
		Int("vehicles", len(model.Vehicles)).
		Int("visits", len(model.Visits)).
		Msg("session created")

	s.writeJSON(w, http.StatusCreated, s.snapshot(sess))
}

// handleGetSession godoc
// @Title Get session
// @Description Returns the current schedules, KPIs and run state.
// @Resource Sessions
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, s.snapshot(sess))
}

// handleGetKpis godoc
// @Title Get KPIs
// @Description Returns the current comparative KPI summary.
// @Resource Sessions
// @Produce json
// @Success 200 {object} KpiResponse
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/kpis [get]
func (s *Server) handleGetKpis(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	resp := newKpiResponse(sess.kpis)
	sess.mu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

// snapshot assembles the response DTO under the session lock.
func (s *Server) snapshot(sess *session) SessionResponse {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return SessionResponse{
		ID:          sess.ID,
		DatasetID:   sess.DatasetID,
		DatasetName: sess.model.Name,
		Warning:     sess.Warning,
		CreatedAt:   sess.CreatedAt,
		Baseline:    sess.baseline,
		Optimized:   sess.optimized,
		Kpis:        newKpiResponse(sess.kpis),
		Run:         sess.run,
	}
}
