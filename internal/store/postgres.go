package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists run history through a pgx pool. The schema is managed by
// the sql-migrate files under migrations/.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool; the caller owns connection setup.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const saveRunSQL = `
INSERT INTO optimization_runs (
    id, session_id, dataset_id, plan_id, status, simulated,
    baseline_cost, optimized_cost,
    baseline_travel_minutes, optimized_travel_minutes,
    assigned_visits, unassigned_visits,
    started_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    simulated = EXCLUDED.simulated,
    baseline_cost = EXCLUDED.baseline_cost,
    optimized_cost = EXCLUDED.optimized_cost,
    baseline_travel_minutes = EXCLUDED.baseline_travel_minutes,
    optimized_travel_minutes = EXCLUDED.optimized_travel_minutes,
    assigned_visits = EXCLUDED.assigned_visits,
    unassigned_visits = EXCLUDED.unassigned_visits,
    completed_at = EXCLUDED.completed_at
`

// SaveRun inserts or updates a run row.
func (p *Postgres) SaveRun(ctx context.Context, run Run) error {
	_, err := p.pool.Exec(ctx, saveRunSQL,
		run.ID, run.SessionID, run.DatasetID, run.PlanID, run.Status, run.Simulated,
		run.BaselineCost, run.OptimizedCost,
		run.BaselineTravelMinutes, run.OptimizedTravelMinutes,
		run.AssignedVisits, run.UnassignedVisits,
		run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

const listRunsSQL = `
SELECT id, session_id, COALESCE(dataset_id, ''), COALESCE(plan_id, ''), status, simulated,
       baseline_cost, optimized_cost,
       baseline_travel_minutes, optimized_travel_minutes,
       assigned_visits, unassigned_visits,
       started_at, completed_at
FROM optimization_runs
ORDER BY started_at DESC
LIMIT $1
`

// ListRuns returns up to limit runs, newest first.
func (p *Postgres) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.SessionID, &run.DatasetID, &run.PlanID, &run.Status, &run.Simulated,
			&run.BaselineCost, &run.OptimizedCost,
			&run.BaselineTravelMinutes, &run.OptimizedTravelMinutes,
			&run.AssignedVisits, &run.UnassignedVisits,
			&run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
