package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/remote"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// TrackedJob is one submitted job under observation.
type TrackedJob struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BatchIndex int       `json:"batch"`
	State      JobState  `json:"state"`
	RawState   string    `json:"raw_state,omitempty"`
	ExitCode   string    `json:"exit_code,omitempty"`
	StartTime  time.Time `json:"start_time,omitempty"`
	EndTime    time.Time `json:"end_time,omitempty"`
	Runtime    float64   `json:"runtime_seconds"`
	Error      string    `json:"error,omitempty"`
}

// Monitor polls the scheduler until every tracked job reaches a terminal
// state. Batch completion feeds the queue plan so the caller can submit the
// next wave.
type Monitor struct {
	runner    remote.Runner
	scheduler string
	interval  time.Duration
	started   time.Time
	jobs      []*TrackedJob
}

// New creates a Monitor. interval is the poll period; values below one
// second are clamped to it to protect the scheduler frontend.
func New(runner remote.Runner, scheduler string, interval time.Duration) *Monitor {
	if interval < time.Second {
		interval = time.Second
	}
	return &Monitor{
		runner:    runner,
		scheduler: scheduler,
		interval:  interval,
	}
}

// Track registers a submitted job.
func (m *Monitor) Track(jobID, name string, batchIndex int) {
	m.jobs = append(m.jobs, &TrackedJob{
		ID:         jobID,
		Name:       name,
		BatchIndex: batchIndex,
		State:      StatePending,
	})
}

// Jobs returns the tracked jobs.
func (m *Monitor) Jobs() []*TrackedJob {
	return m.jobs
}

// ActiveCount returns the number of jobs not yet in a terminal state.
func (m *Monitor) ActiveCount() int {
	active := 0
	for _, j := range m.jobs {
		if !j.State.Terminal() {
			active++
		}
	}
	return active
}

// BatchComplete reports whether every tracked job of a batch is terminal.
// Vacuously true for a batch with no tracked jobs.
func (m *Monitor) BatchComplete(batchIndex int) bool {
	for _, j := range m.jobs {
		if j.BatchIndex == batchIndex && !j.State.Terminal() {
			return false
		}
	}
	return true
}

// CheckAll refreshes the state of every non-terminal job.
func (m *Monitor) CheckAll(ctx context.Context) {
	for _, job := range m.jobs {
		if job.State.Terminal() {
			continue
		}

		status, err := CheckJob(ctx, m.runner, m.scheduler, job.ID)
		if err != nil {
			job.Error = err.Error()
			utils.PrintWarning("Status check failed for job %s: %v", job.ID, err)
			continue
		}
		m.apply(job, status)
	}
}

// apply folds one observation into the tracked job, stamping transition
// times the first time a state is seen.
func (m *Monitor) apply(job *TrackedJob, status JobStatus) {
	if status.State != job.State {
		utils.PrintMessage("Job %s (%s): %s -> %s", job.ID, job.Name, job.State, status.State)
	}

	if status.State == StateRunning && job.StartTime.IsZero() {
		job.StartTime = time.Now()
	}
	if status.State.Terminal() && job.EndTime.IsZero() {
		job.EndTime = time.Now()
		if !job.StartTime.IsZero() {
			job.Runtime = job.EndTime.Sub(job.StartTime).Seconds()
		}
	}

	job.State = status.State
	job.RawState = status.RawState
	if status.ExitCode != "" {
		job.ExitCode = status.ExitCode
	}
}

// BatchCallback is invoked when a plan batch completes, before the plan
// advances. The submitter uses it to launch the next batch's jobs.
type BatchCallback func(completed *queue.Batch, next *queue.Batch) error

// Watch polls until every tracked job is terminal, advancing the plan as
// batches drain. The callback fires once per completed batch. Watch returns
// early on context cancellation with the report built so far.
func (m *Monitor) Watch(ctx context.Context, plan *queue.Plan, onBatchDone BatchCallback) (*Report, error) {
	m.started = time.Now()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.CheckAll(ctx)

		// Advance the plan over every batch that has fully drained
		for {
			batch, ok := plan.CurrentBatch()
			if !ok || !m.BatchComplete(batch.Index) {
				break
			}
			if err := plan.BatchDone(); err != nil {
				return m.Report(), err
			}
			next, _ := plan.CurrentBatch()
			if onBatchDone != nil {
				if err := onBatchDone(batch, next); err != nil {
					return m.Report(), err
				}
			}
		}

		if m.ActiveCount() == 0 && plan.State() == queue.PlanCompleted {
			return m.Report(), nil
		}

		select {
		case <-ctx.Done():
			return m.Report(), ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReportSummary aggregates the run outcome.
type ReportSummary struct {
	TotalJobs      int     `json:"total_jobs"`
	Completed      int     `json:"completed_jobs"`
	Failed         int     `json:"failed_jobs"`
	SuccessRate    float64 `json:"success_rate"`
	TotalRuntime   float64 `json:"total_runtime_seconds"`
	AverageRuntime float64 `json:"average_runtime_seconds"`
	Duration       float64 `json:"monitoring_duration_seconds"`
}

// Report is the final monitoring outcome, serialized to JSON at the end of
// a run.
type Report struct {
	Summary     ReportSummary `json:"summary"`
	Jobs        []*TrackedJob `json:"jobs"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Report builds the current monitoring report.
func (m *Monitor) Report() *Report {
	summary := ReportSummary{TotalJobs: len(m.jobs)}

	for _, j := range m.jobs {
		switch j.State {
		case StateCompleted:
			summary.Completed++
		case StateFailed, StateCancelled, StateTimeout:
			summary.Failed++
		}
		summary.TotalRuntime += j.Runtime
	}
	if summary.TotalJobs > 0 {
		summary.SuccessRate = float64(summary.Completed) / float64(summary.TotalJobs)
	}
	if summary.Completed > 0 {
		summary.AverageRuntime = summary.TotalRuntime / float64(summary.Completed)
	}
	if !m.started.IsZero() {
		summary.Duration = time.Since(m.started).Seconds()
	}

	return &Report{
		Summary:     summary,
		Jobs:        m.jobs,
		GeneratedAt: time.Now(),
	}
}

// Save writes the report as monitoring_report_<timestamp>.json in dir and
// returns the path.
func (r *Report) Save(dir string) (string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir,
		fmt.Sprintf("monitoring_report_%s.json", time.Now().Format("20060102_150405")))

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, utils.PermFile); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
