package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// EventKind classifies a unit of time on a resource's timeline.
type EventKind string

const (
	KindVisit EventKind = "visit"
	// KindTravel is declared for forward compatibility; the current mapping
	// logic does not emit travel segments.
	KindTravel EventKind = "travel"
	KindBreak  EventKind = "break"
)

// EventStatus marks which side of the before/after comparison an event
// belongs to.
type EventStatus string

const (
	StatusBaseline  EventStatus = "baseline"
	StatusOptimized EventStatus = "optimized"
)

// Resource is the normalized projection of a vehicle for display.
type Resource struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Skills     []string   `json:"skills,omitempty"`
	ShiftStart *time.Time `json:"shiftStart,omitempty"`
	ShiftEnd   *time.Time `json:"shiftEnd,omitempty"`
}

// Event is a normalized span of time on a resource's timeline. Every event
// satisfies StartDate < EndDate strictly; spans that would violate this are
// dropped by the normalizers before they reach the output.
type Event struct {
	ID            string      `json:"id"`
	ResourceID    string      `json:"resourceId"`
	VisitID       string      `json:"visitId,omitempty"`
	Name          string      `json:"name"`
	Kind          EventKind   `json:"kind"`
	Status        EventStatus `json:"status"`
	StartDate     time.Time   `json:"startDate"`
	EndDate       time.Time   `json:"endDate"`
	TravelMinutes int         `json:"travelMinutes,omitempty"`
	IsAdjusted    bool        `json:"isAdjusted,omitempty"`
}

// SchedulerData is the canonical resources-plus-events view consumed by the
// timeline widget.
type SchedulerData struct {
	Resources []Resource `json:"resources"`
	Events    []Event    `json:"events"`
}

// Mapper builds SchedulerData projections from raw inputs. Its methods are
// stateless with respect to each other; the struct only carries the logger,
// the data-quality hook and a clock seam for tests.
type Mapper struct {
	log zerolog.Logger

	// WarnHook is invoked once per data-quality anomaly with a short kind
	// label. Optional.
	WarnHook func(kind string)

	// Now supplies the fallback base time when a dataset offers none.
	Now func() time.Time
}

// NewMapper returns a Mapper logging anomalies through log.
func NewMapper(log zerolog.Logger) *Mapper {
	return &Mapper{log: log, Now: time.Now}
}

func (m *Mapper) warn(kind string, ev *zerolog.Event) {
	ev.Str("kind", kind).Msg("data quality anomaly")
	if m.WarnHook != nil {
		m.WarnHook(kind)
	}
}

// ErrEventNotFound is returned by ApplyAdjustment for an unknown event id.
var ErrEventNotFound = errors.New("event not found")

// ApplyAdjustment returns a copy of data with the identified event moved to
// the given span and resource, tagged as a manual edit. The input is not
// mutated. A non-positive span or unknown event id is a structural error.
func ApplyAdjustment(data *SchedulerData, eventID string, start, end time.Time, resourceID string) (*SchedulerData, error) {
	if data == nil {
		return nil, errors.New("scheduler data is required")
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("adjusted span must have start before end (start=%s end=%s)", start, end)
	}

	out := &SchedulerData{
		Resources: append([]Resource(nil), data.Resources...),
		Events:    append([]Event(nil), data.Events...),
	}
	for i := range out.Events {
		if out.Events[i].ID != eventID {
			continue
		}
		ev := out.Events[i]
		ev.StartDate = start
		ev.EndDate = end
		if resourceID != "" {
			ev.ResourceID = resourceID
		}
		ev.IsAdjusted = true
		out.Events[i] = ev
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
}
