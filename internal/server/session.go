package server

import (
	"sync"
	"time"

	"field/board/internal/schedule"
)

// Run phases reported to the UI while an optimization is in flight.
const (
	runPhaseIdle      = "idle"
	runPhaseSubmitted = "submitted"
	runPhasePolling   = "polling"
	runPhaseCompleted = "completed"
	runPhaseFailed    = "failed"
	runPhaseSimulated = "simulated"
)

// runState tracks the single in-flight (or last finished) optimization run
// of a session.
type runState struct {
	RunID     string `json:"runId,omitempty"`
	PlanID    string `json:"planId,omitempty"`
	Phase     string `json:"phase"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	Simulated bool   `json:"simulated,omitempty"`
}

// session holds all per-dashboard state. Derived objects (schedules, KPIs)
// are recomputed wholesale from model + plan on every change; nothing is
// patched incrementally, which keeps concurrent readers safe behind one lock.
type session struct {
	mu sync.Mutex

	ID        string
	DatasetID string
	Warning   string
	CreatedAt time.Time

	model     *schedule.ModelInput
	plan      *schedule.RoutePlan
	baseline  *schedule.SchedulerData
	optimized *schedule.SchedulerData
	kpis      *schedule.KpiSummary

	run      runState
	inFlight bool
}

// beginRun marks the session as having an active optimization run. It
// reports false when one is already in flight: at most one run per session.
func (sess *session) beginRun() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.inFlight {
		return false
	}
	sess.inFlight = true
	return true
}

func (sess *session) endRun() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.inFlight = false
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: map[string]*session{}}
}

func (st *sessionStore) put(sess *session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[sess.ID] = sess
}

func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	return sess, ok
}
