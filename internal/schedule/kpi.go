package schedule

import "errors"

// KpiSide holds one side (baseline or optimized) of the comparative metrics.
type KpiSide struct {
	TotalVisits      int                `json:"totalVisits"`
	AssignedVisits   int                `json:"assignedVisits"`
	UnassignedVisits int                `json:"unassignedVisits"`
	ServiceMinutes   int                `json:"serviceMinutes"`
	TravelMinutes    int                `json:"travelMinutes"`
	WaitMinutes      int                `json:"waitMinutes"`
	WorkMinutes      int                `json:"workMinutes"`
	Cost             float64            `json:"cost"`
	Utilization      map[string]float64 `json:"utilization"`
	AvgUtilization   float64            `json:"avgUtilization"`
}

// KpiSummary pairs baseline and optimized metrics. It is recomputed wholesale
// on every relevant state change, never patched incrementally.
type KpiSummary struct {
	Baseline  KpiSide `json:"baseline"`
	Optimized KpiSide `json:"optimized"`
}

// Savings is the derived cost delta. The presentation layer shows it only
// when positive.
func (k *KpiSummary) Savings() float64 {
	return k.Baseline.Cost - k.Optimized.Cost
}

// ComputeKpis derives the comparative metrics for a model and an optional
// route plan. When plan is nil (no optimization run yet) the optimized side
// mirrors the baseline side verbatim so the UI shows no false delta.
//
// The function is pure: identical inputs yield identical output.
func ComputeKpis(model *ModelInput, plan *RoutePlan) (*KpiSummary, error) {
	if model == nil {
		return nil, errors.New("model input is required")
	}

	baseline := computeBaselineSide(model)

	optimized := baseline
	if plan != nil {
		optimized = computeOptimizedSide(model, plan)
	}
	// Utilization maps must not alias between the sides.
	optimized.Utilization = cloneUtilization(optimized.Utilization)

	return &KpiSummary{Baseline: baseline, Optimized: optimized}, nil
}

// computeBaselineSide needs only the model: the baseline assigns every visit
// and has no real routing, so travel and wait are flat per-visit heuristics.
func computeBaselineSide(model *ModelInput) KpiSide {
	side := KpiSide{
		TotalVisits:    len(model.Visits),
		AssignedVisits: len(model.Visits),
	}
	for _, visit := range model.Visits {
		side.ServiceMinutes += visit.DurationMinutes()
	}
	side.TravelMinutes = side.AssignedVisits * TravelAllowanceMinutes
	side.WaitMinutes = side.AssignedVisits * WaitBufferMinutes
	side.WorkMinutes = side.ServiceMinutes + side.TravelMinutes + side.WaitMinutes
	side.Cost = costOf(side.WorkMinutes)
	side.Utilization = baselineUtilization(model, side.WorkMinutes)
	side.AvgUtilization = averageUtilization(side.Utilization)
	return side
}

func computeOptimizedSide(model *ModelInput, plan *RoutePlan) KpiSide {
	side := KpiSide{TotalVisits: len(model.Visits)}

	for _, route := range plan.Routes {
		side.AssignedVisits += len(route.Visits)
	}
	side.UnassignedVisits = len(plan.UnassignedVisits)
	// Solver-reported metrics take precedence over local recomputation.
	if plan.Metrics != nil {
		if plan.Metrics.AssignedVisitCount != nil {
			side.AssignedVisits = *plan.Metrics.AssignedVisitCount
		}
		if plan.Metrics.UnassignedVisitCount != nil {
			side.UnassignedVisits = *plan.Metrics.UnassignedVisitCount
		}
	}

	for _, route := range plan.Routes {
		for _, planned := range route.Visits {
			side.TravelMinutes += ParseDuration(planned.TravelTimeFromPrevious)
			side.ServiceMinutes += plannedVisitMinutes(model, planned.VisitID)
			side.WaitMinutes += waitMinutes(planned)
		}
		// A route-level travel aggregate replaces the running total rather
		// than that route's contribution; with multiple aggregates the last
		// route wins. This mirrors long-standing observed behaviour and is
		// asserted by tests; do not "fix" silently.
		if route.TotalTravelTime != "" {
			side.TravelMinutes = ParseDuration(route.TotalTravelTime)
		}
	}

	side.WorkMinutes = side.ServiceMinutes + side.TravelMinutes + side.WaitMinutes
	side.Cost = costOf(side.WorkMinutes)
	side.Utilization = optimizedUtilization(model, plan)
	side.AvgUtilization = averageUtilization(side.Utilization)
	return side
}

// waitMinutes is the idle gap between arrival and start of service, counted
// only when both timestamps are present.
func waitMinutes(planned PlannedVisit) int {
	arrival, arrOK := ParseInstant(planned.ArrivalTime)
	start, startOK := ParseInstant(planned.StartServiceTime)
	if !arrOK || !startOK {
		return 0
	}
	gap := int(start.Sub(arrival).Minutes())
	if gap < 0 {
		return 0
	}
	return gap
}

func plannedVisitMinutes(model *ModelInput, visitID string) int {
	if visit := model.VisitByID(visitID); visit != nil {
		return visit.DurationMinutes()
	}
	return DefaultVisitMinutes
}

// baselineUtilization assumes an even split of the total work time across
// all vehicles, measured against each vehicle's first shift.
func baselineUtilization(model *ModelInput, totalWorkMinutes int) map[string]float64 {
	util := map[string]float64{}
	if len(model.Vehicles) == 0 {
		return util
	}
	share := float64(totalWorkMinutes) / float64(len(model.Vehicles))
	for _, vehicle := range model.Vehicles {
		start, end, ok := vehicle.FirstShiftBounds()
		if !ok {
			continue
		}
		shiftMinutes := end.Sub(start).Minutes()
		if shiftMinutes <= 0 {
			continue
		}
		util[vehicle.ID] = clampPct(share / shiftMinutes * 100)
	}
	return util
}

// optimizedUtilization measures each vehicle's own route workload against
// its first shift. A vehicle with no route in the plan scores 0.
func optimizedUtilization(model *ModelInput, plan *RoutePlan) map[string]float64 {
	routesByVehicle := make(map[string]*VehicleRoute, len(plan.Routes))
	for i := range plan.Routes {
		routesByVehicle[plan.Routes[i].VehicleID] = &plan.Routes[i]
	}

	util := map[string]float64{}
	for _, vehicle := range model.Vehicles {
		start, end, ok := vehicle.FirstShiftBounds()
		if !ok {
			continue
		}
		shiftMinutes := end.Sub(start).Minutes()
		if shiftMinutes <= 0 {
			continue
		}

		route, hasRoute := routesByVehicle[vehicle.ID]
		if !hasRoute {
			util[vehicle.ID] = 0
			continue
		}

		work := 0
		travel := 0
		for _, planned := range route.Visits {
			work += plannedVisitMinutes(model, planned.VisitID)
			work += waitMinutes(planned)
			travel += ParseDuration(planned.TravelTimeFromPrevious)
		}
		if route.TotalTravelTime != "" {
			travel = ParseDuration(route.TotalTravelTime)
		}
		work += travel
		util[vehicle.ID] = clampPct(float64(work) / shiftMinutes * 100)
	}
	return util
}

func averageUtilization(util map[string]float64) float64 {
	if len(util) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range util {
		sum += v
	}
	return sum / float64(len(util))
}

func costOf(workMinutes int) float64 {
	return float64(workMinutes) / 60 * HourlyRate
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func cloneUtilization(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
