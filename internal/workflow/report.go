package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// RunReport summarizes one workflow run.
type RunReport struct {
	RunID       string       `json:"run_id"`
	Version     string       `json:"version"`
	DryRun      bool         `json:"dry_run"`
	Success     bool         `json:"success"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	Duration    float64      `json:"duration_seconds"`
	Steps       []StepResult `json:"steps"`
	Strategy    string       `json:"queue_strategy,omitempty"`
	BatchCount  int          `json:"batch_count,omitempty"`
	JobCount    int          `json:"job_count,omitempty"`
	Unallocated int          `json:"unallocated_jobs,omitempty"`
}

// buildReport assembles the run report from accumulated step results.
func (w *Workflow) buildReport(runErr error) *RunReport {
	report := &RunReport{
		RunID:     w.RunID,
		Version:   config.VERSION,
		DryRun:    w.DryRun,
		Success:   runErr == nil,
		StartedAt: w.started,
		Duration:  time.Since(w.started).Seconds(),
		Steps:     w.results,
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if w.plan != nil {
		report.Strategy = string(w.plan.Strategy)
		report.BatchCount = len(w.plan.Batches)
		report.JobCount = w.plan.JobCount()
		report.Unallocated = len(w.plan.Unallocated)
	}
	return report
}

// Save writes the report as workflow_report_<runid>.json in dir and returns
// the path.
func (r *RunReport) Save(dir string) (string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("workflow_report_%s.json", shortID(r.RunID)))
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(path, data, utils.PermFile); err != nil {
		return "", fmt.Errorf("failed to write run report: %w", err)
	}
	return path, nil
}
