package schedule

import (
	"errors"
	"fmt"
	"time"
)

// BuildOptimizedSchedule projects a solver route plan into SchedulerData.
//
// The solver's response shape omits timestamp fields inconsistently depending
// on status and dataset, so each planned visit resolves its span through a
// layered fallback: explicit arrival/departure timestamps, then derivation
// from the visit's service duration, then sequential placement on a running
// per-route clock. A blank or broken timeline is never an acceptable outcome
// of a missing field.
func (m *Mapper) BuildOptimizedSchedule(plan *RoutePlan, model *ModelInput) (*SchedulerData, error) {
	if plan == nil {
		return nil, errors.New("route plan is required")
	}
	if model == nil {
		return nil, errors.New("model input is required")
	}

	data := &SchedulerData{
		Resources: make([]Resource, 0, len(model.Vehicles)+1),
		Events:    []Event{},
	}
	for _, vehicle := range model.Vehicles {
		res := Resource{
			ID:     vehicle.ID,
			Name:   vehicle.DisplayName(),
			Skills: vehicle.Skills,
		}
		if start, end, ok := vehicle.FirstShiftBounds(); ok {
			res.ShiftStart = &start
			res.ShiftEnd = &end
		}
		data.Resources = append(data.Resources, res)
	}

	base := m.fallbackBase(model)

	for _, route := range plan.Routes {
		cursor := base
		for i, planned := range route.Visits {
			durMinutes := DefaultVisitMinutes
			name := planned.VisitID
			if visit := model.VisitByID(planned.VisitID); visit != nil {
				durMinutes = visit.DurationMinutes()
				name = visit.DisplayName()
			}
			dur := time.Duration(durMinutes) * time.Minute

			start, end, resolved := resolveSpan(planned, dur)
			if !resolved {
				// Sequential fallback: fixed gap before every visit after the
				// first, then the service duration.
				if i > 0 {
					cursor = cursor.Add(TravelAllowanceMinutes * time.Minute)
				}
				start = cursor
				end = start.Add(dur)
			}
			if !start.Before(end) {
				// Optimized events are higher value than baseline placeholders:
				// self-heal the span instead of dropping the event.
				m.warn("inverted_optimized_event", m.log.Warn().
					Str("visit_id", planned.VisitID).
					Str("vehicle_id", route.VehicleID).
					Time("start", start).
					Time("end", end))
				end = start.Add(dur)
			}
			cursor = end

			data.Events = append(data.Events, Event{
				ID:            fmt.Sprintf("visit-%s", planned.VisitID),
				ResourceID:    route.VehicleID,
				VisitID:       planned.VisitID,
				Name:          name,
				Kind:          KindVisit,
				Status:        StatusOptimized,
				StartDate:     start,
				EndDate:       end,
				TravelMinutes: ParseDuration(planned.TravelTimeFromPrevious),
			})
		}
	}

	if len(plan.UnassignedVisits) > 0 {
		data.Resources = append(data.Resources, Resource{
			ID:   UnassignedResourceID,
			Name: "Unassigned",
		})
		for i, ref := range plan.UnassignedVisits {
			durMinutes := DefaultVisitMinutes
			name := ref.ID
			if visit := model.VisitByID(ref.ID); visit != nil {
				durMinutes = visit.DurationMinutes()
				name = visit.DisplayName()
			}
			start := base.Add(time.Duration(i*UnassignedStrideMinutes) * time.Minute)
			data.Events = append(data.Events, Event{
				ID:         fmt.Sprintf("visit-%s", ref.ID),
				ResourceID: UnassignedResourceID,
				VisitID:    ref.ID,
				Name:       name,
				Kind:       KindVisit,
				Status:     StatusOptimized,
				StartDate:  start,
				EndDate:    start.Add(time.Duration(durMinutes) * time.Minute),
			})
		}
	}

	return data, nil
}

// fallbackBase seeds the sequential-placement clock: the first vehicle's
// first shift start, or the current time when no shift resolves.
func (m *Mapper) fallbackBase(model *ModelInput) time.Time {
	for _, vehicle := range model.Vehicles {
		if start, _, ok := vehicle.FirstShiftBounds(); ok {
			return start
		}
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return now().UTC().Truncate(time.Minute)
}

// resolveSpan applies the timestamp precedence for one planned visit: a valid
// explicit pair wins, otherwise the missing side is derived from the service
// duration. Reports false when neither timestamp is usable.
func resolveSpan(planned PlannedVisit, dur time.Duration) (start, end time.Time, ok bool) {
	startRaw := planned.StartServiceTime
	if startRaw == "" {
		startRaw = planned.ArrivalTime
	}
	start, startOK := ParseInstant(startRaw)
	end, endOK := ParseInstant(planned.DepartureTime)

	switch {
	case startOK && endOK && start.Before(end):
		return start, end, true
	case startOK:
		return start, start.Add(dur), true
	case endOK:
		return end.Add(-dur), end, true
	default:
		return time.Time{}, time.Time{}, false
	}
}
