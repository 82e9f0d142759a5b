package monitor

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/allocate"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
)

// scriptedRunner answers commands from a canned table; unmatched commands
// exit 1 with empty output.
type scriptedRunner struct {
	responses map[string]string
	calls     []string
}

func (r *scriptedRunner) Run(_ context.Context, command string) (string, string, int, error) {
	r.calls = append(r.calls, command)
	for prefix, out := range r.responses {
		if strings.HasPrefix(command, prefix) {
			return out, "", 0, nil
		}
	}
	return "", "", 1, nil
}

func TestParseSLURMState(t *testing.T) {
	tests := []struct {
		raw  string
		want JobState
	}{
		{"PENDING", StatePending},
		{"RUNNING", StateRunning},
		{"COMPLETED", StateCompleted},
		{"CANCELLED by 1000", StateCancelled},
		{"FAILED", StateFailed},
		{"NODE_FAIL", StateFailed},
		{"OUT_OF_MEMORY", StateFailed},
		{"PREEMPTED", StateCancelled},
		{"TIMEOUT", StateTimeout},
		{"RUNNING+", StateRunning},
		{"SOMETHING_ELSE", StateUnknown},
	}
	for _, tt := range tests {
		if got := ParseSLURMState(tt.raw); got != tt.want {
			t.Errorf("ParseSLURMState(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestParsePBSState(t *testing.T) {
	tests := []struct {
		raw  string
		want JobState
	}{
		{"Q", StatePending},
		{"H", StatePending},
		{"W", StatePending},
		{"S", StatePending},
		{"R", StateRunning},
		{"T", StateRunning},
		{"C", StateCompleted},
		{"E", StateCompleted},
		{"X", StateUnknown},
	}
	for _, tt := range tests {
		if got := ParsePBSState(tt.raw); got != tt.want {
			t.Errorf("ParsePBSState(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestCheckSLURMJobSacct(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{
		"sacct -j 1234": "1234|COMPLETED|2026-08-28T10:00:00|2026-08-28T11:00:00|0:0\n" +
			"1234.batch|COMPLETED|2026-08-28T10:00:00|2026-08-28T11:00:00|0:0\n",
	}}

	status, err := CheckSLURMJob(context.Background(), runner, "1234")
	if err != nil {
		t.Fatalf("CheckSLURMJob: %v", err)
	}
	if status.State != StateCompleted {
		t.Errorf("state = %s, want completed", status.State)
	}
	if status.ExitCode != "0:0" {
		t.Errorf("exit code = %q", status.ExitCode)
	}
	if status.Start != "2026-08-28T10:00:00" {
		t.Errorf("start = %q", status.Start)
	}
}

func TestCheckSLURMJobSqueueFallback(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{
		"sacct -j 99":  "",
		"squeue -j 99": "RUNNING\n",
	}}

	status, err := CheckSLURMJob(context.Background(), runner, "99")
	if err != nil {
		t.Fatalf("CheckSLURMJob: %v", err)
	}
	if status.State != StateRunning {
		t.Errorf("state = %s, want running", status.State)
	}
}

func TestCheckSLURMJobGoneFromQueue(t *testing.T) {
	// Both sacct and squeue come up empty: the job left the queue
	runner := &scriptedRunner{responses: map[string]string{}}

	status, err := CheckSLURMJob(context.Background(), runner, "77")
	if err != nil {
		t.Fatalf("CheckSLURMJob: %v", err)
	}
	if status.State != StateCompleted {
		t.Errorf("state = %s, want completed", status.State)
	}
}

func TestCheckPBSJob(t *testing.T) {
	qstat := `Job Id: 512.master
    Job_Name = CFX_Job_2187
    job_state = R
    exit_status = 0
    Variable_List = PBS_O_HOME=/home/user,
	PBS_O_LANG=en_US.UTF-8
`
	runner := &scriptedRunner{responses: map[string]string{
		"qstat -f 512": qstat,
	}}

	status, err := CheckPBSJob(context.Background(), runner, "512")
	if err != nil {
		t.Fatalf("CheckPBSJob: %v", err)
	}
	if status.State != StateRunning {
		t.Errorf("state = %s, want running", status.State)
	}
	if status.RawState != "R" {
		t.Errorf("raw state = %q", status.RawState)
	}
}

func TestCheckPBSJobNotInQueue(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{}}

	status, err := CheckPBSJob(context.Background(), runner, "513")
	if err != nil {
		t.Fatalf("CheckPBSJob: %v", err)
	}
	if status.State != StateCompleted {
		t.Errorf("state = %s, want completed", status.State)
	}
}

func TestParseQstatContinuationLines(t *testing.T) {
	out := "    Error_Path = login1:/home/user/very/long/path/\n\tthat_continues_here.err\n    job_state = Q\n"
	attrs := parseQstatOutput(out)
	if !strings.HasSuffix(attrs["Error_Path"], "that_continues_here.err") {
		t.Errorf("continuation not folded: %q", attrs["Error_Path"])
	}
	if attrs["job_state"] != "Q" {
		t.Errorf("job_state = %q", attrs["job_state"])
	}
}

func TestMonitorBatchCompletion(t *testing.T) {
	m := New(&scriptedRunner{}, "SLURM", time.Minute)
	m.Track("1", "job_a", 0)
	m.Track("2", "job_b", 0)
	m.Track("3", "job_c", 1)

	if m.BatchComplete(0) {
		t.Errorf("batch 0 should be incomplete")
	}

	m.jobs[0].State = StateCompleted
	m.jobs[1].State = StateFailed
	if !m.BatchComplete(0) {
		t.Errorf("batch 0 should be complete (terminal states)")
	}
	if m.BatchComplete(1) {
		t.Errorf("batch 1 should be incomplete")
	}
	if m.ActiveCount() != 1 {
		t.Errorf("active count = %d, want 1", m.ActiveCount())
	}
}

func TestMonitorWatchAdvancesPlan(t *testing.T) {
	jobs := []allocate.JobRequirement{
		{ID: "2187", Cores: 28},
		{ID: "2189", Cores: 28},
	}
	nodes := []cluster.NodeResource{
		{Name: "n44", TotalCores: 28, AvailableCores: 28, State: cluster.StateFree},
	}
	plan, err := queue.BuildPlan(jobs, nodes, queue.StrategyBatch, queue.DefaultPlanOptions())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(plan.Batches))
	}
	plan.Start()

	// Every status check reports completion immediately
	runner := &scriptedRunner{responses: map[string]string{
		"sacct -j": "10|COMPLETED|||0:0\n",
	}}
	m := New(runner, "SLURM", time.Second)
	m.Track("10", "CFX_Job_2187", 0)

	var submitted []int
	callback := func(done *queue.Batch, next *queue.Batch) error {
		if next != nil {
			submitted = append(submitted, next.Index)
			// Pretend the next batch's job was submitted and completed
			m.Track("11", "CFX_Job_2189", next.Index)
		}
		return nil
	}

	report, err := m.Watch(context.Background(), plan, callback)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if plan.State() != queue.PlanCompleted {
		t.Errorf("plan state = %s, want completed", plan.State())
	}
	if len(submitted) != 1 || submitted[0] != 1 {
		t.Errorf("callback submissions = %v, want [1]", submitted)
	}
	if report.Summary.TotalJobs != 2 || report.Summary.Completed != 2 {
		t.Errorf("report summary = %+v", report.Summary)
	}
	if report.Summary.SuccessRate != 1.0 {
		t.Errorf("success rate = %g, want 1.0", report.Summary.SuccessRate)
	}
}

func TestMonitorWatchContextCancel(t *testing.T) {
	// A job that never leaves RUNNING
	runner := &scriptedRunner{responses: map[string]string{
		"sacct -j": "10|RUNNING|||\n",
	}}
	m := New(runner, "SLURM", time.Second)
	m.Track("10", "stuck", 0)

	plan := &queue.Plan{Strategy: queue.StrategyParallel}
	plan.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Watch(ctx, plan, nil)
	if err != context.DeadlineExceeded {
		t.Errorf("Watch error = %v, want deadline exceeded", err)
	}
}

func TestReportSave(t *testing.T) {
	m := New(&scriptedRunner{}, "SLURM", time.Minute)
	m.Track("1", "job_a", 0)
	m.jobs[0].State = StateCompleted
	m.jobs[0].Runtime = 3600

	dir := t.TempDir()
	path, err := m.Report().Save(dir)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.Contains(path, "monitoring_report_") {
		t.Errorf("report path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var loaded Report
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if loaded.Summary.TotalJobs != 1 || loaded.Summary.Completed != 1 {
		t.Errorf("loaded summary = %+v", loaded.Summary)
	}
}

func TestJobStateTerminal(t *testing.T) {
	for _, s := range []JobState{StateCompleted, StateFailed, StateCancelled, StateTimeout} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobState{StatePending, StateRunning, StateUnknown} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
