package store

import (
	"context"
	"time"
)

// Run is one optimization attempt and its KPI outcome, kept for history.
type Run struct {
	ID                      string     `json:"id"`
	SessionID               string     `json:"sessionId"`
	DatasetID               string     `json:"datasetId,omitempty"`
	PlanID                  string     `json:"planId,omitempty"`
	Status                  string     `json:"status"`
	Simulated               bool       `json:"simulated"`
	BaselineCost            float64    `json:"baselineCost"`
	OptimizedCost           float64    `json:"optimizedCost"`
	BaselineTravelMinutes   int        `json:"baselineTravelMinutes"`
	OptimizedTravelMinutes  int        `json:"optimizedTravelMinutes"`
	AssignedVisits          int        `json:"assignedVisits"`
	UnassignedVisits        int        `json:"unassignedVisits"`
	StartedAt               time.Time  `json:"startedAt"`
	CompletedAt             *time.Time `json:"completedAt,omitempty"`
}

// Store persists optimization run history. Implementations: Postgres when a
// database URL is configured, in-memory otherwise.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close()
}
