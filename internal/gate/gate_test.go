package gate

import (
	"context"
	"math"
	"strings"
	"testing"
)

func TestAtMostAndAtLeast(t *testing.T) {
	if r := AtMost("skew", 1e-15, 1e-12); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	if r := AtMost("skew", 1e-9, 1e-12); r.Passed {
		t.Fatalf("expected fail, got %+v", r)
	}
	if r := AtLeast("r2", 0.9995, 0.999); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	if r := AtLeast("r2", 0.99, 0.999); r.Passed {
		t.Fatalf("expected fail, got %+v", r)
	}
}

func TestNaNNeverPasses(t *testing.T) {
	if AtMost("x", math.NaN(), 1).Passed {
		t.Fatal("NaN passed AtMost")
	}
	if AtLeast("x", math.NaN(), 0).Passed {
		t.Fatal("NaN passed AtLeast")
	}
	if RelativeTo("x", math.NaN(), 1, 0.01).Passed {
		t.Fatal("NaN passed RelativeTo")
	}
}

func TestRelativeTo(t *testing.T) {
	r := RelativeTo("slope", 1.005, 1, 0.01)
	if !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	if math.Abs(r.Observed-0.005) > 1e-12 {
		t.Fatalf("expected relative deviation 0.005, got %g", r.Observed)
	}
	if RelativeTo("slope", 1.02, 1, 0.01).Passed {
		t.Fatal("2% deviation should fail a 1% gate")
	}
	// Zero target falls back to absolute deviation.
	if !RelativeTo("intercept", 0.004, 0, 0.01).Passed {
		t.Fatal("absolute deviation 0.004 should pass")
	}
	if RelativeTo("intercept", 0.02, 0, 0.01).Passed {
		t.Fatal("absolute deviation 0.02 should fail")
	}
}

func TestEvaluateAllPass(t *testing.T) {
	rep := Evaluate("jmj", []Result{
		AtMost("skew", 0, 1e-12),
		Skip("reversibility", "dissipative scheme"),
	})
	if !rep.Passed {
		t.Fatalf("expected pass: %s", rep.Reason)
	}
	if rep.Reason != "all gates passed" {
		t.Fatalf("unexpected reason %q", rep.Reason)
	}
	if len(rep.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(rep.Results))
	}
}

func TestEvaluateKeepsEveryFailure(t *testing.T) {
	rep := Evaluate("m_only", []Result{
		AtMost("skew", 1, 1e-12),
		AtLeast("r2", 0.5, 0.999),
		AtMost("lyapunov", 0, 1e-10),
		Fail("dispersion", "no modes"),
	})
	if rep.Passed {
		t.Fatal("expected failure")
	}
	if n := len(rep.Failed()); n != 3 {
		t.Fatalf("expected 3 failed gates, got %d", n)
	}
	if !strings.HasPrefix(rep.Reason, "3 gates failed") {
		t.Fatalf("unexpected reason %q", rep.Reason)
	}
	for _, want := range []string{"skew", "r2", "dispersion: no modes"} {
		if !strings.Contains(rep.Reason, want) {
			t.Fatalf("reason %q missing %q", rep.Reason, want)
		}
	}
}

func TestMerge(t *testing.T) {
	a := Evaluate("jmj", []Result{AtMost("a", 0, 1)})
	b := Evaluate("jmj", []Result{AtMost("b", 2, 1)})
	m := a.Merge(b)
	if m.Passed || len(m.Results) != 2 {
		t.Fatalf("unexpected merge result %+v", m)
	}
	if len(a.Results) != 1 {
		t.Fatal("merge mutated the receiver")
	}
}

func TestSinkFunc(t *testing.T) {
	var got []Contradiction
	var sink Sink = SinkFunc(func(_ context.Context, c Contradiction) error {
		got = append(got, c)
		return nil
	})
	if err := sink.Quarantine(context.Background(), Contradiction{Validator: "psd", Reason: "negative"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Validator != "psd" {
		t.Fatalf("unexpected sink contents %+v", got)
	}
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	if th.MinR2 != 0.999 || th.SlopeMargin != 0.1 || th.DispersionRel != 0.01 {
		t.Fatalf("unexpected defaults %+v", th)
	}
	if th.Lyapunov != 1e-10 || th.Reversibility != 1e-12 {
		t.Fatalf("unexpected defaults %+v", th)
	}
}
