package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table: one gate
// decision of one scheme in one run.
type ProvenanceEntry struct {
	RunID     string
	Scheme    string
	Gate      string
	Decision  string // "pass" | "fail" | "skip"
	Observed  float64
	Tolerance float64
	Reason    string
	CreatedAt time.Time
}

// #endregion provenance-entry

// #region contradiction-entry
// ContradictionEntry is a quarantined failure record as stored.
type ContradictionEntry struct {
	ID         int64
	RunID      string
	Scheme     string
	Validator  string
	Reason     string
	RecordJSON string
	CreatedAt  time.Time
}

// #endregion contradiction-entry
