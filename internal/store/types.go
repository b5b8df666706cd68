package store

import "time"

// #region run
// Run is one invocation of the validation suite.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	ConfigJSON string
	Schemes    string // comma-separated scheme tags
	Passed     bool
}

// #endregion run

// #region record-row
// RecordRow is one validator record of a run, stored as JSON.
type RecordRow struct {
	RecordID   string
	RunID      string
	Scheme     string
	Validator  string
	Passed     bool
	RecordJSON string
	CreatedAt  time.Time
}

// #endregion record-row

// #region run-with-counts
// RunSummary pairs a run with its record and contradiction counts.
type RunSummary struct {
	Run
	Records        int
	Failed         int
	Contradictions int
}

// #endregion run-with-counts
