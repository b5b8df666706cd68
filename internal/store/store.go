package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	config_json  TEXT,
	schemes      TEXT NOT NULL,
	passed       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
	record_id    TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	scheme       TEXT NOT NULL,
	validator    TEXT NOT NULL,
	passed       INTEGER NOT NULL,
	record_json  TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	scheme       TEXT NOT NULL,
	gate         TEXT NOT NULL,
	decision     TEXT NOT NULL,
	observed     REAL,
	tolerance    REAL,
	reason       TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS contradictions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	scheme       TEXT NOT NULL,
	validator    TEXT NOT NULL,
	reason       TEXT NOT NULL,
	record_json  TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store persists suite runs and their records in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by the logging package.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region runs
// CreateRun inserts a new in-progress run with a fresh id.
func (s *Store) CreateRun(configJSON, schemes string) (Run, error) {
	run := Run{
		RunID:      uuid.New().String(),
		StartedAt:  time.Now().UTC(),
		ConfigJSON: configJSON,
		Schemes:    schemes,
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at, config_json, schemes) VALUES (?, ?, ?, ?)`,
		run.RunID, run.StartedAt.Format(time.RFC3339Nano), nullIfEmpty(configJSON), schemes,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the finish time and overall verdict.
func (s *Store) FinishRun(runID string, passed bool) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, passed = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), boolToInt(passed), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(runID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, started_at, finished_at, config_json, schemes, passed FROM runs WHERE run_id = ?`, runID,
	)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs with record and contradiction counts.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT r.run_id, r.started_at, r.finished_at, r.config_json, r.schemes, r.passed,
		        (SELECT COUNT(*) FROM records c WHERE c.run_id = r.run_id),
		        (SELECT COUNT(*) FROM records c WHERE c.run_id = r.run_id AND c.passed = 0),
		        (SELECT COUNT(*) FROM contradictions q WHERE q.run_id = r.run_id)
		 FROM runs r ORDER BY r.started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var sum RunSummary
		var started string
		var finished, cfg sql.NullString
		var passed int
		if err := rows.Scan(&sum.RunID, &started, &finished, &cfg, &sum.Schemes, &passed,
			&sum.Records, &sum.Failed, &sum.Contradictions); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		fillRun(&sum.Run, started, finished, cfg, passed)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion runs

// #region records
// SaveRecord stores one validator record. An empty RecordID gets a fresh uuid.
func (s *Store) SaveRecord(rec RecordRow) (RecordRow, error) {
	if rec.RecordID == "" {
		rec.RecordID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO records (record_id, run_id, scheme, validator, passed, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RecordID, rec.RunID, rec.Scheme, rec.Validator, boolToInt(rec.Passed), rec.RecordJSON,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RecordRow{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// ListRecords returns every record of a run in insertion order.
func (s *Store) ListRecords(runID string) ([]RecordRow, error) {
	rows, err := s.db.Query(
		`SELECT record_id, run_id, scheme, validator, passed, record_json, created_at
		 FROM records WHERE run_id = ? ORDER BY rowid`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var rec RecordRow
		var passed int
		var created string
		if err := rows.Scan(&rec.RecordID, &rec.RunID, &rec.Scheme, &rec.Validator, &passed, &rec.RecordJSON, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Passed = passed != 0
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion records

// #region helpers
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var started string
	var finished, cfg sql.NullString
	var passed int
	if err := row.Scan(&run.RunID, &started, &finished, &cfg, &run.Schemes, &passed); err != nil {
		return Run{}, err
	}
	fillRun(&run, started, finished, cfg, passed)
	return run, nil
}

func fillRun(run *Run, started string, finished, cfg sql.NullString, passed int) {
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	if cfg.Valid {
		run.ConfigJSON = cfg.String
	}
	run.Passed = passed != 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
