package schedule

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
)

// Export is the JSON export envelope: the loaded model plus the latest
// route plan, exactly as held in session state.
type Export struct {
	ModelInput *ModelInput `json:"modelInput"`
	RoutePlan  *RoutePlan  `json:"routePlan,omitempty"`
}

// ExportJSON serializes the model and optional plan as an indented document.
func ExportJSON(model *ModelInput, plan *RoutePlan) ([]byte, error) {
	if model == nil {
		return nil, errors.New("model input is required")
	}
	return json.MarshalIndent(Export{ModelInput: model, RoutePlan: plan}, "", "  ")
}

var csvHeader = []string{"id", "name", "address", "duration", "required_skills", "assigned_vehicle", "start", "end"}

// ExportCSV flattens the model into one row per visit. Assignment columns
// come from the plan when one is present and stay blank otherwise.
func ExportCSV(model *ModelInput, plan *RoutePlan) ([]byte, error) {
	if model == nil {
		return nil, errors.New("model input is required")
	}

	type assignment struct {
		vehicleID string
		start     string
		end       string
	}
	assignments := map[string]assignment{}
	if plan != nil {
		for _, route := range plan.Routes {
			for _, planned := range route.Visits {
				start := planned.StartServiceTime
				if start == "" {
					start = planned.ArrivalTime
				}
				assignments[planned.VisitID] = assignment{
					vehicleID: route.VehicleID,
					start:     start,
					end:       planned.DepartureTime,
				}
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, visit := range model.Visits {
		assigned := assignments[visit.ID]
		row := []string{
			visit.ID,
			visit.DisplayName(),
			ResolveLocationLabel(visit.Location),
			FormatDuration(visit.DurationMinutes()),
			strings.Join(visit.RequiredSkills, ";"),
			assigned.vehicleID,
			assigned.start,
			assigned.end,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
