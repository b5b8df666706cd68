package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/metriplectic/internal/replay"
	"github.com/danielpatrickdp/metriplectic/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the validation database")
	runID := flag.String("run", "", "run to export (default: most recent finished run)")
	outPath := flag.String("out", "", "output fixture JSON path")
	description := flag.String("description", "", "free-text description stored in the fixture")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--run id] [--description text]")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *outPath, *description); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, runID, outPath, description string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	if runID == "" {
		runID, err = latestFinished(st)
		if err != nil {
			return err
		}
	}

	fx, err := replay.ExportRun(st, runID, description)
	if err != nil {
		return err
	}
	if err := fx.Save(outPath); err != nil {
		return err
	}
	fmt.Printf("exported run %s (%d records) to %s\n", fx.RunID, len(fx.ExpectedRecords), outPath)
	return nil
}

func latestFinished(st *store.Store) (string, error) {
	runs, err := st.ListRuns(50)
	if err != nil {
		return "", err
	}
	for _, r := range runs {
		if !r.FinishedAt.IsZero() {
			return r.RunID, nil
		}
	}
	return "", fmt.Errorf("no finished runs found")
}

// #endregion export
