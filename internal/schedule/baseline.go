package schedule

import (
	"errors"
	"fmt"
	"time"
)

// BuildBaselineSchedule projects a model into the deterministic "before"
// schedule: one resource per vehicle, one break event per resolvable shift
// to show availability, and every visit distributed round-robin across
// vehicles in input order. The result represents an unoptimized manual
// schedule, not any solver output.
func (m *Mapper) BuildBaselineSchedule(model *ModelInput) (*SchedulerData, error) {
	if model == nil {
		return nil, errors.New("model input is required")
	}

	data := &SchedulerData{
		Resources: make([]Resource, 0, len(model.Vehicles)),
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

		for i, sh := range vehicle.Shifts {
			start, end, ok := ResolveShiftBounds(sh)
			if !ok {
				m.warn("unresolvable_shift", m.log.Warn().
					Str("vehicle_id", vehicle.ID).
					Int("shift_index", i))
				continue
			}
			data.Events = append(data.Events, Event{
				ID:         fmt.Sprintf("shift-%s-%d", vehicle.ID, i),
				ResourceID: vehicle.ID,
				Name:       fmt.Sprintf("%s available", vehicle.DisplayName()),
				Kind:       KindBreak,
				Status:     StatusBaseline,
				StartDate:  start,
				EndDate:    end,
			})
		}
	}

	if len(model.Vehicles) == 0 {
		return data, nil
	}

	// Round-robin by visit index, then sequential placement per vehicle from
	// its first shift start. Vehicles without a resolvable shift stay idle.
	cursors := make(map[string]time.Time, len(model.Vehicles))
	for _, vehicle := range model.Vehicles {
		if start, _, ok := vehicle.FirstShiftBounds(); ok {
			cursors[vehicle.ID] = start
		}
	}

	for i, visit := range model.Visits {
		vehicle := model.Vehicles[i%len(model.Vehicles)]
		cursor, ok := cursors[vehicle.ID]
		if !ok {
			continue
		}

		start := cursor
		end := start.Add(time.Duration(visit.DurationMinutes()) * time.Minute)
		cursors[vehicle.ID] = end.Add(TravelAllowanceMinutes * time.Minute)

		if !start.Before(end) {
			m.warn("degenerate_baseline_event", m.log.Warn().
				Str("visit_id", visit.ID).
				Str("vehicle_id", vehicle.ID).
				Time("start", start).
				Time("end", end))
			continue
		}

		data.Events = append(data.Events, Event{
			ID:         fmt.Sprintf("visit-%s", visit.ID),
			ResourceID: vehicle.ID,
			VisitID:    visit.ID,
			Name:       visit.DisplayName(),
			Kind:       KindVisit,
			Status:     StatusBaseline,
			StartDate:  start,
			EndDate:    end,
		})
	}

	return data, nil
}
