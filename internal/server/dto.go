package server

import (
	"time"

	"field/board/internal/schedule"
)

// SessionResponse is the full dashboard snapshot for one session: the
// normalized schedules and KPIs are served read-only; edits come back
// through the adjustment endpoint.
type SessionResponse struct {
	ID          string                  `json:"id"`
	DatasetID   string                  `json:"datasetId,omitempty"`
	DatasetName string                  `json:"datasetName,omitempty"`
	Warning     string                  `json:"warning,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	Baseline    *schedule.SchedulerData `json:"baseline"`
	Optimized   *schedule.SchedulerData `json:"optimized,omitempty"`
	Kpis        *KpiResponse            `json:"kpis"`
	Run         runState                `json:"run"`
}

// KpiResponse adds the derived savings figure to the stored summary. The UI
// shows savings only when positive.
type KpiResponse struct {
	schedule.KpiSummary
	Savings float64 `json:"savings"`
}

func newKpiResponse(kpis *schedule.KpiSummary) *KpiResponse {
	if kpis == nil {
		return nil
	}
	return &KpiResponse{KpiSummary: *kpis, Savings: kpis.Savings()}
}

// CreateSessionRequest selects the dataset a new session starts from. An
// empty dataset id loads the local fixture.
type CreateSessionRequest struct {
	DatasetID string `json:"dataset_id,omitempty"`
}

// OptimizeRequest optionally overrides the configured solver parameters for
// one run.
type OptimizeRequest struct {
	MapConfigID      string `json:"map_config_id,omitempty"`
	TerminationLimit string `json:"termination_limit,omitempty"`
}

// AdjustEventRequest is a manual drag/resize edit of a single event.
type AdjustEventRequest struct {
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
	ResourceID string    `json:"resource_id,omitempty"`
}

// DatasetListResponse wraps the demo catalogue. Warning is set when the
// remote catalogue failed and the fixture entry is all that remains.
type DatasetListResponse struct {
	Items   []DatasetItem `json:"items"`
	Warning string        `json:"warning,omitempty"`
}

// DatasetItem is one selectable dataset.
type DatasetItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// RunListResponse wraps persisted run history.
type RunListResponse struct {
	Items interface{} `json:"items"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Env    string `json:"env"`
	Uptime string `json:"uptime"`
}
