// Package estimator implements the Estimator (C9): the counterfactual
// serial wall-clock baseline and cache savings computed from a pipeline
// run's action results.
//
// There is no estimator.rs among the original sources; its single
// arithmetic rule is expressed in turbo's small-struct, no-dependency
// style (e.g. internal/runsummary's spaces.go helpers).
package estimator

import "time"

// Result is the input this package reduces: one action's terminal
// duration and whether it was satisfied from cache.
type Result struct {
	Duration time.Duration
	Cached   bool
}

// Estimate is the Estimator's output.
type Estimate struct {
	Baseline time.Duration
	Duration time.Duration
	Gain     *time.Duration // nil if duration >= baseline
}

// Compute implements: baseline = sum of duration over non-cached actions;
// gain = baseline - duration if positive, else none.
func Compute(results []Result, duration time.Duration) Estimate {
	var baseline time.Duration
	for _, r := range results {
		if !r.Cached {
			baseline += r.Duration
		}
	}

	est := Estimate{Baseline: baseline, Duration: duration}
	if gain := baseline - duration; gain > 0 {
		est.Gain = &gain
	}
	return est
}
