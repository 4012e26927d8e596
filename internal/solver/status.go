package solver

import "strings"

// Status is the solver-reported lifecycle state of a route plan.
type Status string

const (
	StatusNotStarted        Status = "NOT_STARTED"
	StatusDatasetCreated    Status = "DATASET_CREATED"
	StatusDatasetValidated  Status = "DATASET_VALIDATED"
	StatusDatasetComputed   Status = "DATASET_COMPUTED"
	StatusSolvingScheduled  Status = "SOLVING_SCHEDULED"
	StatusSolvingStarted    Status = "SOLVING_STARTED"
	StatusSolvingActive     Status = "SOLVING_ACTIVE"
	StatusSolvingCompleted  Status = "SOLVING_COMPLETED"
	StatusSolvingIncomplete Status = "SOLVING_INCOMPLETE"
	StatusSolvingFailed     Status = "SOLVING_FAILED"
	StatusDatasetInvalid    Status = "DATASET_INVALID"
	StatusException         Status = "EXCEPTION"
	StatusUnknown           Status = "UNKNOWN"
)

var knownStatuses = map[Status]struct{}{
	StatusNotStarted:        {},
	StatusDatasetCreated:    {},
	StatusDatasetValidated:  {},
	StatusDatasetComputed:   {},
	StatusSolvingScheduled:  {},
	StatusSolvingStarted:    {},
	StatusSolvingActive:     {},
	StatusSolvingCompleted:  {},
	StatusSolvingIncomplete: {},
	StatusSolvingFailed:     {},
	StatusDatasetInvalid:    {},
	StatusException:         {},
}

// ParseStatus normalizes a raw solver status string; unrecognized values map
// to StatusUnknown rather than failing.
func ParseStatus(raw string) Status {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownStatuses[s]; ok {
		return s
	}
	return StatusUnknown
}

// IsTerminal reports whether polling should stop, success or failure alike.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSolvingCompleted, StatusSolvingIncomplete, StatusSolvingFailed,
		StatusDatasetInvalid, StatusException:
		return true
	}
	return false
}

// IsSuccess reports whether the plan carries a usable optimized result.
func (s Status) IsSuccess() bool {
	return s == StatusSolvingCompleted || s == StatusSolvingIncomplete
}
