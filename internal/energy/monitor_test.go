package energy

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/field"
)

func scenarioStepper(t *testing.T, g field.Grid, b dissipative.Boundary) *dissipative.Stepper {
	t.Helper()
	s, err := dissipative.NewStepper(g, dissipative.Params{D: 0.5, R: 1, U: 0.25}, b, dissipative.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMonitorPassesOnScenario(t *testing.T) {
	cfg := DefaultMonitorConfig()
	m := NewMonitor(cfg)

	result, err := m.Run(scenarioStepper(t, cfg.Grid, dissipative.Periodic))
	if err != nil {
		t.Fatal(err)
	}
	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if len(result.Metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(result.Metrics))
	}
	if result.Metrics[0].Value >= 0 {
		t.Fatalf("expected strictly decreasing energy, got ΔL=%g", result.Metrics[0].Value)
	}
	if len(result.Gates) != 1 || !result.Gates[0].Passed {
		t.Fatalf("unexpected gates %+v", result.Gates)
	}
}

func TestMonitorManySeedsNeumann(t *testing.T) {
	cfg := DefaultMonitorConfig()
	cfg.Seeds = []int64{1, 2, 3, 4}
	cfg.Steps = 20
	m := NewMonitor(cfg)

	result, err := m.Run(scenarioStepper(t, cfg.Grid, dissipative.Neumann))
	if err != nil {
		t.Fatal(err)
	}
	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if len(result.Metrics) != 5 {
		t.Fatalf("expected 5 metrics, got %d", len(result.Metrics))
	}
}

func TestMonitorFailsOnTightTolerance(t *testing.T) {
	cfg := DefaultMonitorConfig()
	cfg.MaxDeltaL = -1e6 // demand an impossible energy drop
	m := NewMonitor(cfg)

	result, err := m.Run(scenarioStepper(t, cfg.Grid, dissipative.Periodic))
	if err != nil {
		t.Fatal(err)
	}
	if result.Passed {
		t.Fatal("expected fail")
	}
	if result.Gates[0].Passed {
		t.Fatal("gate should fail")
	}
}

func TestMonitorErrors(t *testing.T) {
	cfg := DefaultMonitorConfig()
	cfg.Seeds = nil
	_, err := NewMonitor(cfg).Run(scenarioStepper(t, cfg.Grid, dissipative.Periodic))
	if !errors.Is(err, field.ErrEmptySweep) {
		t.Fatalf("expected ErrEmptySweep, got %v", err)
	}

	cfg = DefaultMonitorConfig()
	cfg.Dt = 0
	_, err = NewMonitor(cfg).Run(scenarioStepper(t, cfg.Grid, dissipative.Periodic))
	if !errors.Is(err, field.ErrDegenerateStep) {
		t.Fatalf("expected ErrDegenerateStep, got %v", err)
	}
}
