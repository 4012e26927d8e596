package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"field/board/internal/schedule"
	"field/board/internal/solver"
	"field/board/internal/store"

	"github.com/google/uuid"
)

// handleOptimize godoc
// @Title Start optimization
// @Description Submits the session's model to the remote solver and polls in the background.
// @Resource Optimization
// @Accept json
// @Produce json
// @Success 202 {object} SessionResponse
// @Failure 404 {object} APIError
// @Failure 409 {object} APIError
// @Failure 502 {object} APIError
// @Failure 503 {object} APIError
// @Route /v1/sessions/{sessionID}/optimize [post]
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	if !s.solver.Configured() {
		s.writeError(w, http.StatusServiceUnavailable,
			"remote optimization is not configured", "set SOLVER_BASE_URL and SOLVER_API_KEY, or use the local simulation")
		return
	}

	var req OptimizeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := s.decodeAndValidate(r, &req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
			return
		}
	}
	mapConfigID := req.MapConfigID
	if mapConfigID == "" {
		mapConfigID = s.cfg.Solver.MapConfigID
	}
	terminationLimit := req.TerminationLimit
	if terminationLimit == "" {
		terminationLimit = s.cfg.Solver.TerminationLimit
	}

	if !sess.beginRun() {
		s.writeError(w, http.StatusConflict, "an optimization run is already in flight", nil)
		return
	}

	sess.mu.Lock()
	model := sess.model
	sess.mu.Unlock()

	submitted, err := s.solver.SubmitRoutePlan(r.Context(), model, mapConfigID, terminationLimit)
	if err != nil {
		sess.endRun()
		s.writeError(w, http.StatusBadGateway, "failed to submit route plan", err.Error())
		return
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()
	sess.mu.Lock()
	sess.run = runState{
		RunID:  runID,
		PlanID: submitted.ID,
		Phase:  runPhasePolling,
		Status: string(solver.ParseStatus(submitted.SolverStatus)),
	}
	sess.mu.Unlock()

	s.log.Info().
		Str("session_id", sess.ID).
		Str("plan_id", submitted.ID).
		Str("run_id", runID).
		Msg("optimization submitted")

	// The watch outlives the HTTP request; the session teardown path is the
	// server context, not this request's.
	go s.watchRun(context.Background(), sess, runID, submitted.ID, startedAt)

	s.writeJSON(w, http.StatusAccepted, s.snapshot(sess))
}

// watchRun polls the solver until a terminal status or the deadline, then
// rebuilds the optimized schedule and KPIs from the final plan.
func (s *Server) watchRun(ctx context.Context, sess *session, runID, planID string, startedAt time.Time) {
	defer sess.endRun()

	plan, err := s.watcher.Wait(ctx, planID)
	optimizationWaitSeconds.Observe(time.Since(startedAt).Seconds())

	if err != nil {
		outcome := "failed"
		message := "optimization failed"
		if errors.Is(err, solver.ErrPollTimeout) {
			outcome = "timeout"
			message = "optimization timed out; retry or use the local simulation"
		}
		optimizationRunsTotal.WithLabelValues(outcome).Inc()
		s.log.Error().Err(err).Str("plan_id", planID).Msg("optimization watch ended in error")

		sess.mu.Lock()
		sess.run = runState{RunID: runID, PlanID: planID, Phase: runPhaseFailed, Error: message}
		sess.mu.Unlock()
		s.persistRun(ctx, sess, runID, planID, outcome, false, startedAt)
		return
	}

	status := solver.ParseStatus(plan.SolverStatus)
	if !status.IsSuccess() {
		optimizationRunsTotal.WithLabelValues("rejected").Inc()
		message := "the solver could not produce a schedule"
		if status == solver.StatusDatasetInvalid {
			// Expected, user-recoverable condition: distinguish it from
			// generic failures and point at the local simulator.
			message = "the solver rejected this dataset (for example, outside its geographic coverage); try the local simulation instead"
		}
		sess.mu.Lock()
		sess.run = runState{RunID: runID, PlanID: planID, Phase: runPhaseFailed, Status: string(status), Error: message}
		sess.mu.Unlock()
		s.persistRun(ctx, sess, runID, planID, string(status), false, startedAt)
		return
	}

	sess.mu.Lock()
	model := sess.model
	sess.mu.Unlock()

	optimized, err := s.mapper.BuildOptimizedSchedule(plan, model)
	if err != nil {
		optimizationRunsTotal.WithLabelValues("failed").Inc()
		sess.mu.Lock()
		sess.run = runState{RunID: runID, PlanID: planID, Phase: runPhaseFailed, Status: string(status), Error: err.Error()}
		sess.mu.Unlock()
		return
	}
	kpis, err := schedule.ComputeKpis(model, plan)
	if err != nil {
		optimizationRunsTotal.WithLabelValues("failed").Inc()
		sess.mu.Lock()
		sess.run = runState{RunID: runID, PlanID: planID, Phase: runPhaseFailed, Status: string(status), Error: err.Error()}
		sess.mu.Unlock()
		return
	}

	sess.mu.Lock()
	sess.plan = plan
	sess.optimized = optimized
	sess.kpis = kpis
	sess.run = runState{RunID: runID, PlanID: planID, Phase: runPhaseCompleted, Status: string(status)}
	sess.mu.Unlock()

	optimizationRunsTotal.WithLabelValues("completed").Inc()
	s.log.Info().
		Str("session_id", sess.ID).
		Str("plan_id", planID).
		Str("status", string(status)).
		Float64("savings", kpis.Savings()).
		Msg("optimization completed")

	s.persistRun(ctx, sess, runID, planID, string(status), false, startedAt)
}

// handleGetRunState godoc
// @Title Get run state
// @Description Returns the state of the current or last optimization run.
// @Resource Optimization
// @Produce json
// @Success 200 {object} runState
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/optimize [get]
func (s *Server) handleGetRunState(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	run := sess.run
	sess.mu.Unlock()
	s.writeJSON(w, http.StatusOK, run)
}

// handleSimulate godoc
// @Title Simulate optimization
// @Description Produces a deterministic locally simulated schedule without the remote solver.
// @Resource Optimization
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 404 {object} APIError
// @Failure 409 {object} APIError
// @Route /v1/sessions/{sessionID}/simulate [post]
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	if !sess.beginRun() {
		s.writeError(w, http.StatusConflict, "an optimization run is already in flight", nil)
		return
	}
	defer sess.endRun()

	sess.mu.Lock()
	model := sess.model
	baseline := sess.baseline
	sess.mu.Unlock()

	simulated, err := s.mapper.SimulateOptimizedSchedule(model, baseline)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to simulate schedule", err.Error())
		return
	}
	// No route plan exists for a simulation, so KPIs keep mirroring the
	// baseline; only the timeline shows the compressed placement.
	kpis, err := schedule.ComputeKpis(model, nil)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to compute KPIs", err.Error())
		return
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()
	sess.mu.Lock()
	sess.plan = nil
	sess.optimized = simulated
	sess.kpis = kpis
	sess.run = runState{RunID: runID, Phase: runPhaseSimulated, Simulated: true}
	sess.mu.Unlock()

	optimizationRunsTotal.WithLabelValues("simulated").Inc()
	s.log.Info().Str("session_id", sess.ID).Msg("local simulation applied")

	s.persistRun(r.Context(), sess, runID, "", "SIMULATED", true, startedAt)

	s.writeJSON(w, http.StatusOK, s.snapshot(sess))
}

// persistRun records the outcome in the run history store. Persistence
// failures are logged, never surfaced: history is advisory.
func (s *Server) persistRun(ctx context.Context, sess *session, runID, planID, status string, simulated bool, startedAt time.Time) {
	sess.mu.Lock()
	run := store.Run{
		ID:        runID,
		SessionID: sess.ID,
		DatasetID: sess.DatasetID,
		PlanID:    planID,
		Status:    status,
		Simulated: simulated,
		StartedAt: startedAt,
	}
	if sess.kpis != nil {
		run.BaselineCost = sess.kpis.Baseline.Cost
		run.OptimizedCost = sess.kpis.Optimized.Cost
		run.BaselineTravelMinutes = sess.kpis.Baseline.TravelMinutes
		run.OptimizedTravelMinutes = sess.kpis.Optimized.TravelMinutes
		run.AssignedVisits = sess.kpis.Optimized.AssignedVisits
		run.UnassignedVisits = sess.kpis.Optimized.UnassignedVisits
	}
	sess.mu.Unlock()

	completed := time.Now().UTC()
	run.CompletedAt = &completed

	if err := s.runs.SaveRun(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("run_id", runID).Msg("failed to persist run history")
	}
}
