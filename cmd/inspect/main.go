package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/danielpatrickdp/metriplectic/internal/logging"
	"github.com/danielpatrickdp/metriplectic/internal/store"
	"github.com/danielpatrickdp/metriplectic/internal/suite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the validation database")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	contradictions := flag.Bool("contradictions", false, "list quarantined records instead of runs")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/metriplectic.db [--last N] [--run id] [--contradictions] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *contradictions:
		err = runContradictionMode(st, *last, *jsonOut)
	case *runID != "":
		err = runDetailMode(st, *runID, *jsonOut)
	default:
		err = runListMode(st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID          string `json:"run_id"`
	Schemes        string `json:"schemes"`
	Passed         bool   `json:"passed"`
	Finished       bool   `json:"finished"`
	Records        int    `json:"records"`
	Failed         int    `json:"failed"`
	Contradictions int    `json:"contradictions"`
	StartedAt      string `json:"started_at"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[len(runs)-1-i] = listRow{
			RunID:          r.RunID,
			Schemes:        r.Schemes,
			Passed:         r.Passed,
			Finished:       !r.FinishedAt.IsZero(),
			Records:        r.Records,
			Failed:         r.Failed,
			Contradictions: r.Contradictions,
			StartedAt:      r.StartedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-20s  %-7s  %7s  %6s  %8s  %s\n",
		"Run", "Schemes", "Result", "Records", "Failed", "Quarant.", "Started")
	fmt.Printf("%-10s+-%-20s+-%-7s+-%7s+-%6s+-%8s+-%s\n",
		"----------", "--------------------", "-------", "-------", "------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-10s  %-20s  %-7s  %7d  %6d  %8d  %s\n",
			shortID(r.RunID), r.Schemes, runResult(r.Passed, r.Finished), r.Records, r.Failed, r.Contradictions, r.StartedAt)
	}
	return nil
}

func runResult(passed, finished bool) string {
	switch {
	case !finished:
		return "running"
	case passed:
		return "pass"
	default:
		return "FAIL"
	}
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID     string           `json:"run_id"`
	StartedAt string           `json:"started_at"`
	Schemes   string           `json:"schemes"`
	Passed    bool             `json:"passed"`
	Config    json.RawMessage  `json:"config,omitempty"`
	Records   []suite.Record   `json:"records"`
	Decisions []decisionOutput `json:"decisions"`
}

type decisionOutput struct {
	Scheme    string   `json:"scheme"`
	Gate      string   `json:"gate"`
	Decision  string   `json:"decision"`
	Observed  *float64 `json:"observed"`
	Tolerance *float64 `json:"tolerance"`
	Reason    string   `json:"reason,omitempty"`
}

func runDetailMode(st *store.Store, runID string, jsonOut bool) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	rows, err := st.ListRecords(runID)
	if err != nil {
		return err
	}
	decisions, err := logging.ListDecisions(st.DB(), runID)
	if err != nil {
		return err
	}

	out := detailOutput{
		RunID:     run.RunID,
		StartedAt: run.StartedAt.Format("2006-01-02T15:04:05Z"),
		Schemes:   run.Schemes,
		Passed:    run.Passed,
	}
	if run.ConfigJSON != "" {
		out.Config = json.RawMessage(run.ConfigJSON)
	}
	for _, row := range rows {
		var rec suite.Record
		if err := json.Unmarshal([]byte(row.RecordJSON), &rec); err != nil {
			return fmt.Errorf("record %s: %w", row.RecordID, err)
		}
		out.Records = append(out.Records, rec)
	}
	for _, d := range decisions {
		out.Decisions = append(out.Decisions, decisionOutput{
			Scheme:    d.Scheme,
			Gate:      d.Gate,
			Decision:  d.Decision,
			Observed:  nullable(d.Observed),
			Tolerance: nullable(d.Tolerance),
			Reason:    d.Reason,
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Run:      %s\n", out.RunID)
	fmt.Printf("Started:  %s\n", out.StartedAt)
	fmt.Printf("Schemes:  %s\n", out.Schemes)
	fmt.Printf("Passed:   %v\n", out.Passed)

	fmt.Printf("\nRecords:\n")
	for _, rec := range out.Records {
		result := "pass"
		if !rec.Gate.Passed {
			result = "FAIL"
		}
		fitText := ""
		if rec.Fit != nil && rec.Fit.Slope != nil {
			fitText = fmt.Sprintf("slope=%.4f", *rec.Fit.Slope)
			if rec.Fit.R2 != nil {
				fitText += fmt.Sprintf(" r2=%.6f", *rec.Fit.R2)
			}
		}
		fmt.Printf("  %-10s %-16s %-4s  samples=%-4d %s\n", rec.Scheme, rec.Validator, result, len(rec.Samples), fitText)
		if rec.Reason != "" {
			fmt.Printf("    reason: %s\n", rec.Reason)
		}
	}

	fmt.Printf("\nGates:\n")
	for _, d := range out.Decisions {
		fmt.Printf("  %-10s %-28s %-4s  %12s  %12s\n", d.Scheme, d.Gate, d.Decision, show(d.Observed), show(d.Tolerance))
	}
	return nil
}

// #endregion detail-mode

// #region contradiction-mode

type contradictionRow struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Scheme    string          `json:"scheme"`
	Validator string          `json:"validator"`
	Reason    string          `json:"reason"`
	Record    json.RawMessage `json:"record,omitempty"`
	CreatedAt string          `json:"created_at"`
}

func runContradictionMode(st *store.Store, last int, jsonOut bool) error {
	entries, err := logging.ListContradictions(st.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no contradictions found")
		return nil
	}

	rows := make([]contradictionRow, len(entries))
	for i, e := range entries {
		rows[i] = contradictionRow{
			ID:        e.ID,
			RunID:     e.RunID,
			Scheme:    e.Scheme,
			Validator: e.Validator,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if e.RecordJSON != "" {
			rows[i].Record = json.RawMessage(e.RecordJSON)
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	for _, r := range rows {
		fmt.Printf("#%-5d %-10s %-10s %-16s %s\n", r.ID, shortID(r.RunID), r.Scheme, r.Validator, r.CreatedAt)
		fmt.Printf("       %s\n", r.Reason)
	}
	return nil
}

// #endregion contradiction-mode

// #region output

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func show(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.4g", *v)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
