package server

import (
	"context"
	"net/http"

	"field/board/internal/dataset"
	"field/board/internal/schedule"
)

const fixtureWarning = "demo catalogue unavailable, using local fixture dataset"

// handleListDatasets godoc
// @Title List datasets
// @Description Returns the solver's demo catalogue plus the local fixture.
// @Resource Datasets
// @Produce json
// @Success 200 {object} DatasetListResponse
// @Route /v1/datasets [get]
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	resp := DatasetListResponse{
		Items: []DatasetItem{{ID: dataset.FixtureID, Name: "Local fixture", Source: "fixture"}},
	}

	if s.solver.Configured() {
		items, err := s.solver.ListDatasets(r.Context())
		if err != nil {
			// Losing the ability to browse data is worse than showing the
			// fixture, so this degrades with a warning instead of failing.
			s.log.Warn().Err(err).Msg("demo catalogue fetch failed, serving fixture only")
			resp.Warning = fixtureWarning
		} else {
			for _, item := range items {
				resp.Items = append(resp.Items, DatasetItem{ID: item.ID, Name: item.Name, Source: "solver"})
			}
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// loadDataset resolves a dataset id to a ModelInput. Empty or fixture ids
// load the embedded fixture; remote failures fall back to the fixture with a
// warning annotation rather than failing the session.
func (s *Server) loadDataset(ctx context.Context, id string) (model *schedule.ModelInput, datasetID, warning string, err error) {
	if id == "" || id == dataset.FixtureID {
		model, err = dataset.LoadFixture()
		return model, dataset.FixtureID, "", err
	}

	if !s.solver.Configured() {
		model, err = dataset.LoadFixture()
		return model, dataset.FixtureID, fixtureWarning, err
	}

	model, err = s.solver.GetDataset(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("dataset_id", id).Msg("remote dataset fetch failed, falling back to fixture")
		model, err = dataset.LoadFixture()
		return model, dataset.FixtureID, fixtureWarning, err
	}
	return model, id, "", nil
}
