package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testMapper() *Mapper {
	return NewMapper(zerolog.Nop())
}

func dayShift(startHour, endHour int) Shift {
	return Shift{
		StartTime: fmt.Sprintf("2026-03-02T%02d:00:00Z", startHour),
		EndTime:   fmt.Sprintf("2026-03-02T%02d:00:00Z", endHour),
	}
}

func twoVehicleModel(visitCount int) *ModelInput {
	model := &ModelInput{
		Vehicles: []Vehicle{
			{ID: "v1", Name: "Van One", Shifts: []Shift{dayShift(8, 16)}},
			{ID: "v2", Name: "Van Two", Shifts: []Shift{dayShift(8, 16)}},
		},
	}
	for i := 0; i < visitCount; i++ {
		model.Visits = append(model.Visits, Visit{ID: fmt.Sprintf("visit-%d", i), Name: fmt.Sprintf("Visit %d", i)})
	}
	return model
}

func visitEvents(data *SchedulerData, resourceID string) []Event {
	var out []Event
	for _, ev := range data.Events {
		if ev.Kind == KindVisit && (resourceID == "" || ev.ResourceID == resourceID) {
			out = append(out, ev)
		}
	}
	return out
}

func TestBuildBaselineScheduleRoundRobin(t *testing.T) {
	// 2 vehicles on 08:00-16:00 shifts, 3 visits with the default 30m
	// duration: indices land on vehicles [0,1,0], vehicle 1 gets visits at
	// 08:00 and 08:45 (30m service + 15m travel), vehicle 2 one at 08:00.
	model := twoVehicleModel(3)
	data, err := testMapper().BuildBaselineSchedule(model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(data.Resources) != 2 {
		t.Fatalf("resources = %d, want 2", len(data.Resources))
	}

	v1 := visitEvents(data, "v1")
	v2 := visitEvents(data, "v2")
	if len(v1) != 2 || len(v2) != 1 {
		t.Fatalf("distribution = (%d, %d), want (2, 1)", len(v1), len(v2))
	}

	eight := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if !v1[0].StartDate.Equal(eight) {
		t.Errorf("first visit start = %s, want 08:00", v1[0].StartDate)
	}
	if !v1[0].EndDate.Equal(eight.Add(30 * time.Minute)) {
		t.Errorf("first visit end = %s, want 08:30", v1[0].EndDate)
	}
	if !v1[1].StartDate.Equal(eight.Add(45 * time.Minute)) {
		t.Errorf("second visit start = %s, want 08:45", v1[1].StartDate)
	}
	if !v2[0].StartDate.Equal(eight) {
		t.Errorf("vehicle 2 visit start = %s, want 08:00", v2[0].StartDate)
	}
}

func TestBuildBaselineSchedulePartition(t *testing.T) {
	// Each of V vehicles receives floor(N/V) or ceil(N/V) visits, and the
	// union covers the whole input with no duplicates.
	const visits, vehicles = 7, 3
	model := &ModelInput{}
	for i := 0; i < vehicles; i++ {
		model.Vehicles = append(model.Vehicles, Vehicle{
			ID:     fmt.Sprintf("v%d", i),
			Shifts: []Shift{dayShift(8, 18)},
		})
	}
	for i := 0; i < visits; i++ {
		model.Visits = append(model.Visits, Visit{ID: fmt.Sprintf("visit-%d", i)})
	}

	data, err := testMapper().BuildBaselineSchedule(model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]int{}
	perVehicle := map[string]int{}
	for _, ev := range visitEvents(data, "") {
		seen[ev.VisitID]++
		perVehicle[ev.ResourceID]++
	}
	if len(seen) != visits {
		t.Fatalf("placed %d distinct visits, want %d", len(seen), visits)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("visit %s placed %d times", id, n)
		}
	}
	lo, hi := visits/vehicles, (visits+vehicles-1)/vehicles
	for id, n := range perVehicle {
		if n != lo && n != hi {
			t.Errorf("vehicle %s got %d visits, want %d or %d", id, n, lo, hi)
		}
	}
}

func TestBuildBaselineScheduleBreakEvents(t *testing.T) {
	model := twoVehicleModel(0)
	data, err := testMapper().BuildBaselineSchedule(model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	breaks := 0
	for _, ev := range data.Events {
		if ev.Kind != KindBreak {
			continue
		}
		breaks++
		if !ev.StartDate.Before(ev.EndDate) {
			t.Errorf("break %s has non-positive span", ev.ID)
		}
	}
	if breaks != 2 {
		t.Fatalf("break events = %d, want 2", breaks)
	}
}

func TestBuildBaselineScheduleShiftlessVehicleStaysIdle(t *testing.T) {
	model := &ModelInput{
		Vehicles: []Vehicle{
			{ID: "v1", Shifts: []Shift{dayShift(8, 16)}},
			{ID: "v2"}, // no shift: valid but idle
		},
		Visits: []Visit{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
	}
	data, err := testMapper().BuildBaselineSchedule(model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := visitEvents(data, "v2"); len(got) != 0 {
		t.Fatalf("shift-less vehicle received %d visit events", len(got))
	}
	if got := visitEvents(data, "v1"); len(got) != 2 {
		t.Fatalf("vehicle 1 received %d visit events, want 2", len(got))
	}
	// The idle vehicle still shows up as a resource.
	if len(data.Resources) != 2 {
		t.Fatalf("resources = %d, want 2", len(data.Resources))
	}
}

func TestBuildBaselineScheduleNoDegenerateEvents(t *testing.T) {
	model := twoVehicleModel(5)
	model.Visits[2].ServiceDuration = "garbage" // defaults to 30m
	model.Visits[4].ServiceDuration = "PT2H"

	data, err := testMapper().BuildBaselineSchedule(model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ev := range data.Events {
		if !ev.StartDate.Before(ev.EndDate) {
			t.Errorf("event %s has startDate >= endDate", ev.ID)
		}
	}
}

func TestBuildBaselineScheduleNilModel(t *testing.T) {
	if _, err := testMapper().BuildBaselineSchedule(nil); err == nil {
		t.Fatal("expected error for nil model")
	}
}
