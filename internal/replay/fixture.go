package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/metriplectic/internal/store"
	"github.com/danielpatrickdp/metriplectic/internal/suite"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: the exact
// configuration of a run and the records it produced.
type Fixture struct {
	Description     string         `json:"description"`
	RunID           string         `json:"run_id"`
	Config          suite.Config   `json:"config"`
	ExpectedRecords []suite.Record `json:"expected_records"`
}

// #endregion fixture-types

// #region load

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.Config.Validate(); err != nil {
		return Fixture{}, fmt.Errorf("fixture config: %w", err)
	}
	if len(fx.ExpectedRecords) == 0 {
		return Fixture{}, fmt.Errorf("fixture %s has no expected records", path)
	}
	return fx, nil
}

// Save writes fx as indented JSON.
func (fx Fixture) Save(path string) error {
	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// #endregion load

// #region export

// ExportRun builds a fixture from a stored run.
func ExportRun(st *store.Store, runID, description string) (Fixture, error) {
	run, err := st.GetRun(runID)
	if err != nil {
		return Fixture{}, err
	}
	if run.FinishedAt.IsZero() {
		return Fixture{}, fmt.Errorf("run %s did not finish", runID)
	}

	fx := Fixture{Description: description, RunID: run.RunID}
	if err := json.Unmarshal([]byte(run.ConfigJSON), &fx.Config); err != nil {
		return Fixture{}, fmt.Errorf("run %s config: %w", runID, err)
	}

	rows, err := st.ListRecords(runID)
	if err != nil {
		return Fixture{}, err
	}
	for _, row := range rows {
		var rec suite.Record
		if err := json.Unmarshal([]byte(row.RecordJSON), &rec); err != nil {
			return Fixture{}, fmt.Errorf("record %s: %w", row.RecordID, err)
		}
		fx.ExpectedRecords = append(fx.ExpectedRecords, rec)
	}
	return fx, nil
}

// #endregion export
