package schedule

import (
	"errors"
	"sort"
	"time"
)

// Local-simulation constants. The simulator demonstrates what compressing
// inter-visit gaps could look like; it makes no solver-quality claim.
const (
	// simAnchorHour is the clock hour each simulated day restarts at.
	simAnchorHour = 8

	// simGapMinutes is the baseline travel allowance compressed by 40%.
	simGapMinutes = TravelAllowanceMinutes * 6 / 10

	// simRecoveryMinutes advances the clock past an undropped anomaly so the
	// compression never stalls.
	simRecoveryMinutes = 30
)

// SimulateOptimizedSchedule produces a deterministic stand-in for a solver
// result from the baseline schedule, used when the remote solver is
// unreachable or rejects the dataset. Visit events are replayed per resource
// and calendar day from a fixed 08:00 anchor with compressed gaps; durations
// are preserved. Break events carry over unchanged.
func (m *Mapper) SimulateOptimizedSchedule(model *ModelInput, baseline *SchedulerData) (*SchedulerData, error) {
	if model == nil {
		return nil, errors.New("model input is required")
	}
	if baseline == nil {
		return nil, errors.New("baseline schedule is required")
	}

	data := &SchedulerData{
		Resources: append([]Resource(nil), baseline.Resources...),
		Events:    []Event{},
	}

	// resource -> day -> chronological visit events
	type dayKey struct {
		resourceID string
		day        string
	}
	grouped := map[dayKey][]Event{}
	var keys []dayKey

	for _, ev := range baseline.Events {
		if ev.Kind != KindVisit {
			data.Events = append(data.Events, ev)
			continue
		}
		key := dayKey{resourceID: ev.ResourceID, day: ev.StartDate.UTC().Format("2006-01-02")}
		if _, seen := grouped[key]; !seen {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], ev)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].resourceID != keys[j].resourceID {
			return keys[i].resourceID < keys[j].resourceID
		}
		return keys[i].day < keys[j].day
	})

	for _, key := range keys {
		events := grouped[key]
		sort.Slice(events, func(i, j int) bool {
			return events[i].StartDate.Before(events[j].StartDate)
		})

		first := events[0].StartDate.UTC()
		cursor := time.Date(first.Year(), first.Month(), first.Day(), simAnchorHour, 0, 0, 0, time.UTC)

		placed := 0
		for _, ev := range events {
			if placed > 0 {
				cursor = cursor.Add(simGapMinutes * time.Minute)
			}
			dur := ev.EndDate.Sub(ev.StartDate)
			if dur <= 0 {
				m.warn("degenerate_simulated_event", m.log.Warn().
					Str("event_id", ev.ID).
					Str("resource_id", ev.ResourceID))
				cursor = cursor.Add(simRecoveryMinutes * time.Minute)
				continue
			}

			out := ev
			out.Status = StatusOptimized
			out.StartDate = cursor
			out.EndDate = cursor.Add(dur)
			data.Events = append(data.Events, out)

			cursor = out.EndDate
			placed++
		}
	}

	return data, nil
}
