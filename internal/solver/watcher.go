package solver

import (
	"context"
	"errors"
	"time"

	"field/board/internal/config"
	"field/board/internal/schedule"

	"github.com/rs/zerolog"
)

// ErrPollTimeout is returned when a job reaches the polling deadline without
// hitting a terminal status. The user should retry or simulate locally.
var ErrPollTimeout = errors.New("optimization polling deadline exceeded")

// Watcher polls a submitted job until it terminates. The policy is plain
// periodic polling at a constant interval with a hard deadline, not
// retry-with-backoff; transient transport hiccups are absorbed inside the
// client's per-request retry.
type Watcher struct {
	client   *Client
	interval time.Duration
	deadline time.Duration
	log      zerolog.Logger
}

// NewWatcher builds a watcher from the solver configuration.
func NewWatcher(client *Client, cfg config.SolverConfig, log zerolog.Logger) *Watcher {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := cfg.PollDeadline
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	return &Watcher{client: client, interval: interval, deadline: deadline, log: log}
}

// Wait blocks until the job reaches a terminal status, the deadline expires,
// or ctx is cancelled. Terminal statuses stop polling success or failure
// alike; the returned plan carries the status for the caller to inspect.
func (w *Watcher) Wait(ctx context.Context, id string) (*schedule.RoutePlan, error) {
	deadline := time.NewTimer(w.deadline)
	defer deadline.Stop()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			w.log.Warn().Str("plan_id", id).Dur("deadline", w.deadline).Msg("polling abandoned")
			return nil, ErrPollTimeout
		case <-ticker.C:
			plan, err := w.client.PollRoutePlan(ctx, id)
			if err != nil {
				// One failed poll is not fatal; the next tick retries and the
				// deadline bounds the total wait.
				w.log.Warn().Err(err).Str("plan_id", id).Msg("poll attempt failed")
				continue
			}
			status := ParseStatus(plan.SolverStatus)
			w.log.Debug().Str("plan_id", id).Str("status", string(status)).Msg("polled route plan")
			if status.IsTerminal() {
				return plan, nil
			}
		}
	}
}
