package estimator

import (
	"testing"
	"time"
)

func TestComputeGainWhenParallelismHelped(t *testing.T) {
	results := []Result{
		{Duration: 3 * time.Second},
		{Duration: 4 * time.Second},
		{Duration: 1 * time.Second, Cached: true},
	}
	est := Compute(results, 4*time.Second)
	if est.Baseline != 7*time.Second {
		t.Fatalf("Baseline = %v", est.Baseline)
	}
	if est.Gain == nil || *est.Gain != 3*time.Second {
		t.Fatalf("Gain = %v", est.Gain)
	}
}

func TestComputeNoGainWhenDurationExceedsBaseline(t *testing.T) {
	results := []Result{{Duration: 1 * time.Second}}
	est := Compute(results, 5*time.Second)
	if est.Gain != nil {
		t.Fatalf("expected nil Gain, got %v", *est.Gain)
	}
}

func TestComputeIgnoresCachedActionsInBaseline(t *testing.T) {
	results := []Result{{Duration: 10 * time.Second, Cached: true}}
	est := Compute(results, time.Second)
	if est.Baseline != 0 {
		t.Fatalf("Baseline = %v, want 0 (all cached)", est.Baseline)
	}
}
