package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	"github.com/Ramsey-B/fern/pkg/fetcher"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/quality"
)

// SummaryFile is the name of the run summary in the output directory.
const SummaryFile = "run_summary.json"

// Summary is the record of one run written to run_summary.json.
type Summary struct {
	RunID           string                    `json:"run_id"`
	Status          models.RunStatus          `json:"status"`
	Error           string                    `json:"error,omitempty"`
	StartedAt       time.Time                 `json:"started_at"`
	FinishedAt      time.Time                 `json:"finished_at"`
	DurationSeconds float64                   `json:"duration_seconds"`
	Stages          map[string]float64        `json:"stage_seconds"`
	Inputs          fetcher.Paths             `json:"inputs"`
	Rows            map[string]int            `json:"rows"`
	LatestMonth     string                    `json:"latest_production_month,omitempty"`
	Aggregated      bool                      `json:"production_aggregated"`
	Warnings        map[diagnostics.Kind]int  `json:"warnings"`
	Identifiers     *quality.IdentifierReport `json:"identifiers,omitempty"`
	Quality         map[string]any            `json:"quality,omitempty"`
	Outputs         []string                  `json:"outputs"`
	Uploads         []string                  `json:"uploads,omitempty"`
	Published       map[string]string         `json:"published,omitempty"`
}

func newSummary(runID string, started time.Time) *Summary {
	return &Summary{
		RunID:     runID,
		Status:    models.RunStatusRunning,
		StartedAt: started,
		Stages:    map[string]float64{},
		Rows:      map[string]int{},
		Warnings:  map[diagnostics.Kind]int{},
		Outputs:   []string{},
		Published: map[string]string{},
	}
}

func (s *Summary) stage(name string, start time.Time) {
	seconds := time.Since(start).Seconds()
	s.Stages[name] = seconds
	metrics.StageDuration.WithLabelValues(name).Observe(seconds)
}

func (s *Summary) finish(err error) {
	s.FinishedAt = time.Now().UTC()
	s.DurationSeconds = s.FinishedAt.Sub(s.StartedAt).Seconds()
	if err != nil {
		s.Status = models.RunStatusFailed
		s.Error = err.Error()
		return
	}
	s.Status = models.RunStatusSucceeded
}

// Map renders the summary as a generic JSON document.
func (s *Summary) Map() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadSummary reads a run_summary.json file.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &s, nil
}
