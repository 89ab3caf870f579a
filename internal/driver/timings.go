package driver

import (
	"encoding/json"
	"fmt"

	"forget/internal/diag"
	"forget/internal/observ"
	"forget/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// TimingDiagnostic packs the report of timer into an informational
// diagnostic whose note holds the JSON form.
func TimingDiagnostic(timer *observ.Timer, path string) (diag.Diagnostic, error) {
	report := timer.Report()
	payload := timingPayload{Kind: "pipeline", Path: path, TotalMS: report.TotalMS, Phases: report.Phases}
	data, err := json.Marshal(payload)
	if err != nil {
		return diag.Diagnostic{}, fmt.Errorf("driver: timings: %w", err)
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)
	if path != "" {
		msg += ": " + path
	}
	d := diag.New(diag.SevInfo, diag.ObsTimings, source.Span{}, msg)
	return d.WithNote(source.Span{}, string(data)), nil
}
