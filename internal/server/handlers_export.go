package server

import (
	"fmt"
	"net/http"

	"field/board/internal/schedule"
)

// handleExport godoc
// @Title Export session
// @Description Exports the model and latest route plan as JSON or denormalized CSV.
// @Resource Sessions
// @Produce json
// @Param format query string false "json or csv" default(json)
// @Success 200
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/export [get]
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	sess.mu.Lock()
	model := sess.model
	plan := sess.plan
	sess.mu.Unlock()

	switch format {
	case "json":
		payload, err := schedule.ExportJSON(model, plan)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to export", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "schedule-export.json"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	case "csv":
		payload, err := schedule.ExportCSV(model, plan)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to export", err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "schedule-export.csv"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	default:
		s.writeError(w, http.StatusBadRequest, "unsupported export format", format)
	}
}
