package server

import (
	"net/http"
	"strconv"
)

// handleListRuns godoc
// @Title List optimization runs
// @Description Returns persisted run history, newest first.
// @Resource Runs
// @Produce json
// @Param limit query int false "Maximum runs" default(50)
// @Success 200 {object} RunListResponse
// @Failure 500 {object} APIError
// @Route /v1/runs [get]
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, RunListResponse{Items: runs})
}
