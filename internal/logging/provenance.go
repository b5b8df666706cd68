package logging

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (run_id, scheme, gate, decision, observed, tolerance, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Scheme,
		entry.Gate,
		entry.Decision,
		nullIfNaN(entry.Observed),
		nullIfNaN(entry.Tolerance),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// LogReport writes one provenance row per gate result of the report.
func LogReport(db *sql.DB, runID string, rep gate.Report) error {
	now := time.Now().UTC()
	for _, r := range rep.Results {
		err := LogDecision(db, ProvenanceEntry{
			RunID:     runID,
			Scheme:    rep.Scheme,
			Gate:      r.Name,
			Decision:  Decision(r),
			Observed:  r.Observed,
			Tolerance: r.Tolerance,
			Reason:    r.Detail,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Decision maps a gate result to its provenance decision.
func Decision(r gate.Result) string {
	switch {
	case r.Skipped:
		return "skip"
	case r.Passed:
		return "pass"
	default:
		return "fail"
	}
}

// ListDecisions returns the provenance rows of a run in insertion order.
// NULL observations and tolerances come back as NaN.
func ListDecisions(db *sql.DB, runID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, scheme, gate, decision, observed, tolerance, reason, created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var observed, tolerance sql.NullFloat64
		var reason sql.NullString
		var created string
		if err := rows.Scan(&e.RunID, &e.Scheme, &e.Gate, &e.Decision, &observed, &tolerance, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Observed, e.Tolerance = math.NaN(), math.NaN()
		if observed.Valid {
			e.Observed = observed.Float64
		}
		if tolerance.Valid {
			e.Tolerance = tolerance.Float64
		}
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion log-decision

// #region contradictions
// Sink quarantines contradiction records in the contradictions table.
type Sink struct {
	db *sql.DB
}

// NewSink returns a gate.Sink backed by db.
func NewSink(db *sql.DB) *Sink {
	return &Sink{db: db}
}

// Quarantine implements gate.Sink.
func (s *Sink) Quarantine(ctx context.Context, c gate.Contradiction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contradictions (run_id, scheme, validator, reason, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.RunID,
		c.Scheme,
		c.Validator,
		c.Reason,
		nullIfEmpty(string(c.Record)),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("quarantine %s/%s: %w", c.Scheme, c.Validator, err)
	}
	return nil
}

// ListContradictions returns the most recent quarantined records.
func ListContradictions(db *sql.DB, limit int) ([]ContradictionEntry, error) {
	rows, err := db.Query(
		`SELECT id, run_id, scheme, validator, reason, record_json, created_at
		 FROM contradictions ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list contradictions: %w", err)
	}
	defer rows.Close()

	var out []ContradictionEntry
	for rows.Next() {
		var e ContradictionEntry
		var record sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Scheme, &e.Validator, &e.Reason, &record, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if record.Valid {
			e.RecordJSON = record.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion contradictions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfNaN(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// #endregion helpers
