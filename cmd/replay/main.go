package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/metriplectic/internal/replay"
	"github.com/danielpatrickdp/metriplectic/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the validation database (DB mode)")
	runID := flag.String("run", "", "run to replay in DB mode")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	tol := flag.Float64("tol", replay.DefaultTolerance, "relative tolerance for sample values and fit coefficients")
	flag.Parse()

	dbMode := *dbPath != "" && *runID != ""
	if dbMode == (*fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/db --run id")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *tol)
	} else {
		exitCode = runDBMode(*dbPath, *runID, *tol)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region modes

func runDBMode(dbPath, runID string, tol float64) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	fx, err := replay.ExportRun(st, runID, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load run: %v\n", err)
		return 2
	}
	return replayFixture(fx, tol)
}

func runFixtureMode(path string, tol float64) int {
	fx, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if fx.Description != "" {
		fmt.Printf("Fixture: %s\n", fx.Description)
	}
	return replayFixture(fx, tol)
}

// #endregion modes

// #region output

func replayFixture(fx replay.Fixture, tol float64) int {
	res, err := replay.Replay(context.Background(), fx, tol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	fmt.Printf("Replayed run %s as %s: %d records\n", fx.RunID, res.RunID, res.Records)
	if res.Matched() {
		fmt.Println("\nAll records reproduced.")
		return 0
	}

	fmt.Printf("\n%-10s  %-16s  %-20s  %-24s  %s\n", "Scheme", "Validator", "Field", "Recorded", "Replayed")
	fmt.Printf("%-10s+-%-16s+-%-20s+-%-24s+-%s\n",
		"----------", "----------------", "--------------------", "------------------------", "------------------------")
	for _, m := range res.Mismatches {
		fmt.Printf("%-10s  %-16s  %-20s  %-24s  %s\n", m.Scheme, m.Validator, m.Field, m.Want, m.Got)
	}
	fmt.Printf("\n%d mismatches\n", len(res.Mismatches))
	return 1
}

// #endregion output
