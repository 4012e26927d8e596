// Package dataset ships the local demo ModelInput used when the solver
// gateway is unconfigured or its demo catalogue cannot be reached. The
// normalizer treats fixture and remote datasets identically.
package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"field/board/internal/schedule"
)

// FixtureID identifies the embedded dataset in catalogue listings.
const FixtureID = "local-fixture"

//go:embed demo_dataset.json
var fixtureJSON []byte

// LoadFixture decodes the embedded demo dataset. A fresh copy is returned on
// every call so sessions never share a ModelInput.
func LoadFixture() (*schedule.ModelInput, error) {
	var model schedule.ModelInput
	if err := json.Unmarshal(fixtureJSON, &model); err != nil {
		return nil, fmt.Errorf("decode fixture dataset: %w", err)
	}
	return &model, nil
}
