package schedule

import (
	"encoding/json"
	"strings"
	"time"
)

// Fixed heuristics shared by the normalizers and the KPI engine. Each value
// has exactly one definition here so callers cannot drift apart.
const (
	// DefaultVisitMinutes is applied whenever a visit carries no parseable
	// service duration.
	DefaultVisitMinutes = 30

	// TravelAllowanceMinutes is the flat inter-visit travel estimate used for
	// baseline placement and baseline travel KPIs.
	TravelAllowanceMinutes = 15

	// WaitBufferMinutes is the flat per-visit wait estimate on the baseline side.
	WaitBufferMinutes = 5

	// HourlyRate converts work hours into cost units.
	HourlyRate = 450.0

	// UnassignedStrideMinutes spaces visits on the synthetic unassigned row.
	UnassignedStrideMinutes = 45

	// UnassignedResourceID is the synthetic resource holding visits the solver
	// could not place.
	UnassignedResourceID = "unassigned"
)

// Shift is a vehicle availability window. Upstream datasets use two schemas
// for the same bounds (startTime/endTime vs minStartTime/maxEndTime); both are
// carried here and collapsed by ResolveShiftBounds.
type Shift struct {
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
	MinStartTime string `json:"minStartTime,omitempty"`
	MaxEndTime   string `json:"maxEndTime,omitempty"`
}

// Location is either a [latitude, longitude] pair or an object with an
// address string, depending on the dataset source.
type Location struct {
	Coordinates []float64
	Address     string
}

type locationObject struct {
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// UnmarshalJSON accepts both location schemas.
func (l *Location) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &l.Coordinates)
	}
	var obj locationObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Address = obj.Address
	if obj.Latitude != nil && obj.Longitude != nil {
		l.Coordinates = []float64{*obj.Latitude, *obj.Longitude}
	}
	return nil
}

// MarshalJSON emits the coordinate-pair form when coordinates are known,
// otherwise the object form.
func (l Location) MarshalJSON() ([]byte, error) {
	if len(l.Coordinates) >= 2 && l.Address == "" {
		return json.Marshal(l.Coordinates)
	}
	obj := locationObject{Address: l.Address}
	if len(l.Coordinates) >= 2 {
		obj.Latitude = &l.Coordinates[0]
		obj.Longitude = &l.Coordinates[1]
	}
	return json.Marshal(obj)
}

// Vehicle is a technician/resource capable of being assigned visits.
type Vehicle struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Shifts   []Shift  `json:"shifts,omitempty"`
	Skills   []string `json:"skills,omitempty"`
	Capacity int      `json:"capacity,omitempty"`
}

// DisplayName falls back to the identifier when no name is set.
func (v Vehicle) DisplayName() string {
	if strings.TrimSpace(v.Name) != "" {
		return v.Name
	}
	return v.ID
}

// FirstShiftBounds returns the bounds of the first shift that resolves.
func (v Vehicle) FirstShiftBounds() (start, end time.Time, ok bool) {
	for _, sh := range v.Shifts {
		if s, e, resolved := ResolveShiftBounds(sh); resolved {
			return s, e, true
		}
	}
	return time.Time{}, time.Time{}, false
}

// TimeWindow bounds when a visit may be serviced.
type TimeWindow struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// Visit is a unit of work needing assignment.
type Visit struct {
	ID              string       `json:"id"`
	Name            string       `json:"name,omitempty"`
	Location        *Location    `json:"location,omitempty"`
	ServiceDuration string       `json:"serviceDuration,omitempty"`
	TimeWindows     []TimeWindow `json:"timeWindows,omitempty"`
	RequiredSkills  []string     `json:"requiredSkills,omitempty"`
	Priority        int          `json:"priority,omitempty"`
}

// DisplayName falls back to the identifier when no name is set.
func (v Visit) DisplayName() string {
	if strings.TrimSpace(v.Name) != "" {
		return v.Name
	}
	return v.ID
}

// DurationMinutes returns the parsed service duration, applying the default
// visit length when the field is missing or unparseable.
func (v Visit) DurationMinutes() int {
	if d := ParseDuration(v.ServiceDuration); d > 0 {
		return d
	}
	return DefaultVisitMinutes
}

// ModelInput is the root aggregate sent to the solver. It is never mutated
// after loading; every transformation produces new derived structures.
type ModelInput struct {
	Name     string    `json:"name,omitempty"`
	Vehicles []Vehicle `json:"vehicles"`
	Visits   []Visit   `json:"visits"`
}

// VisitByID looks up a visit definition, nil when absent.
func (m *ModelInput) VisitByID(id string) *Visit {
	for i := range m.Visits {
		if m.Visits[i].ID == id {
			return &m.Visits[i]
		}
	}
	return nil
}

// PlannedVisit is one stop in a solver route. Timestamp fields are observed
// to be inconsistently populated depending on solver status and dataset, so
// every consumer must tolerate any subset being absent.
type PlannedVisit struct {
	VisitID                string `json:"visitId"`
	ArrivalTime            string `json:"arrivalTime,omitempty"`
	DepartureTime          string `json:"departureTime,omitempty"`
	StartServiceTime       string `json:"startServiceTime,omitempty"`
	TravelTimeFromPrevious string `json:"travelTimeFromPreviousStandstill,omitempty"`
}

// VehicleRoute is the ordered stop list for one vehicle.
type VehicleRoute struct {
	VehicleID       string         `json:"vehicleId"`
	Visits          []PlannedVisit `json:"visits"`
	TotalTravelTime string         `json:"totalTravelTime,omitempty"`
}

// VisitRef references a visit the solver could not place.
type VisitRef struct {
	ID string `json:"id"`
}

// PlanMetrics are optional solver-reported aggregates. When present they take
// precedence over locally recomputed counts.
type PlanMetrics struct {
	AssignedVisitCount   *int `json:"assignedVisitCount,omitempty"`
	UnassignedVisitCount *int `json:"unassignedVisitCount,omitempty"`
}

// RoutePlan is the raw solver result. Immutable once received; a new
// optimization run produces a new RoutePlan and discards the previous one.
type RoutePlan struct {
	ID               string         `json:"id,omitempty"`
	SolverStatus     string         `json:"solverStatus"`
	Routes           []VehicleRoute `json:"routes"`
	UnassignedVisits []VisitRef     `json:"unassignedVisits,omitempty"`
	Metrics          *PlanMetrics   `json:"metrics,omitempty"`
}
