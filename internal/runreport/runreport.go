// Package runreport implements the persisted run report:
// .moon/cache/runs/<report_name>.json, written by run.Execute at the end
// of a run that did not abort, when report_name is set.
//
// Grounded on original_source's pipeline.rs (create_run_report, which
// assembles the same actions/context/duration/baseline/savings shape from
// a finished run) and turbo's internal/runsummary package for the
// general idea of a serializable post-run summary, adapted to this
// orchestrator's own report schema instead of turbo's task-summary one.
package runreport

import (
	"github.com/ontools/moonrun/internal/action"
	"github.com/ontools/moonrun/internal/estimator"
)

// ActionRecord is one action's entry in the report.
type ActionRecord struct {
	Label      string `json:"label"`
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// Report is the on-wire shape written to .moon/cache/runs/<name>.json.
type Report struct {
	Actions             []ActionRecord         `json:"actions"`
	Context             map[string]interface{} `json:"context"`
	DurationMs          int64                  `json:"duration_ms"`
	EstimatedSavingsMs  *int64                 `json:"estimatedSavings_ms,omitempty"`
	BaselineDurationMs  int64                  `json:"baselineDuration_ms"`
}

// Build assembles a Report from the pipeline's finished actions, the
// computed estimate, and the serializable run context.
func Build(actions []*action.Action, est estimator.Estimate, context map[string]interface{}) Report {
	records := make([]ActionRecord, 0, len(actions))
	for _, a := range actions {
		rec := ActionRecord{
			Label:      a.Label,
			Status:     string(a.Status),
			DurationMs: a.Duration.Milliseconds(),
		}
		if a.Error != nil {
			rec.Error = a.Error.Error()
		}
		records = append(records, rec)
	}

	report := Report{
		Actions:            records,
		Context:            context,
		DurationMs:         est.Duration.Milliseconds(),
		BaselineDurationMs: est.Baseline.Milliseconds(),
	}
	if est.Gain != nil {
		ms := est.Gain.Milliseconds()
		report.EstimatedSavingsMs = &ms
	}
	return report
}
