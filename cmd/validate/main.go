package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielpatrickdp/metriplectic/internal/compose"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
	"github.com/danielpatrickdp/metriplectic/internal/metrics"
	"github.com/danielpatrickdp/metriplectic/internal/store"
	"github.com/danielpatrickdp/metriplectic/internal/suite"
)

// #region main
func main() {
	configPath := flag.String("config", envOr("METRIPLECTIC_CONFIG", ""), "suite config (.yaml or .json)")
	dbPath := flag.String("db", envOr("METRIPLECTIC_DB", ""), "sqlite path for runs, provenance and quarantine (empty: no persistence)")
	schemes := flag.String("scheme", "", "comma-separated schemes to run (default: from config)")
	noDispersion := flag.Bool("no-dispersion", false, "skip the Klein–Gordon dispersion sweep")
	metricsPath := flag.String("metrics", "", "write Prometheus text metrics to this file after the run")
	jsonOut := flag.Bool("json", false, "print records as JSON instead of a table")
	flag.Parse()

	cfg, err := suite.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *schemes != "" {
		cfg.Schemes, err = parseSchemes(*schemes)
		if err != nil {
			log.Fatalf("-scheme: %v", err)
		}
	}
	if *noDispersion {
		cfg.Dispersion.Enabled = false
	}

	m := metrics.New()
	opts := []suite.Option{suite.WithMetrics(m)}
	if *dbPath != "" {
		st, err := store.NewStore(*dbPath)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer st.Close()
		opts = append(opts, suite.WithStore(st))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := suite.NewRunner(cfg, opts...).Run(ctx)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	if *metricsPath != "" {
		if err := prometheus.WriteToTextfile(*metricsPath, m.Registry); err != nil {
			log.Printf("write metrics: %v", err)
		}
	}

	if *jsonOut {
		if err := printJSON(out.Records); err != nil {
			log.Fatalf("%v", err)
		}
	} else {
		printReports(out)
	}
	if !out.Passed {
		os.Exit(1)
	}
}

// #endregion main

// #region output
func printReports(out suite.Outcome) {
	fmt.Printf("Run %s\n\n", out.RunID)
	fmt.Printf("%-10s  %-28s  %-6s  %12s  %12s\n", "Scheme", "Gate", "Result", "Observed", "Tolerance")
	fmt.Printf("%-10s+-%-28s+-%-6s+-%12s+-%12s\n",
		"----------", "----------------------------", "------", "------------", "------------")
	for _, rep := range out.Reports {
		for _, r := range rep.Results {
			fmt.Printf("%-10s  %-28s  %-6s  %12s  %12s\n",
				rep.Scheme, r.Name, outcome(r), number(r.Observed, r.Skipped), number(r.Tolerance, r.Skipped))
		}
	}

	fmt.Println()
	for _, rep := range out.Reports {
		fmt.Printf("  %-10s %s\n", rep.Scheme, rep.Reason)
	}
	if out.Passed {
		fmt.Println("\nPASS")
	} else {
		fmt.Println("\nFAIL")
	}
}

func outcome(r gate.Result) string {
	switch {
	case r.Skipped:
		return "skip"
	case r.Passed:
		return "pass"
	default:
		return "FAIL"
	}
}

func number(v float64, skipped bool) string {
	if skipped {
		return "—"
	}
	return fmt.Sprintf("%.4g", v)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output

// #region helpers
func parseSchemes(list string) ([]compose.Scheme, error) {
	var out []compose.Scheme
	for _, tag := range strings.Split(list, ",") {
		s, err := compose.ParseScheme(strings.TrimSpace(tag))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
