package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/remote"
)

// JobStatus is one observation of a job on the cluster.
type JobStatus struct {
	JobID    string
	State    JobState
	RawState string // scheduler's own state string
	Start    string
	End      string
	ExitCode string
}

// CheckSLURMJob queries one SLURM job, preferring sacct for its accounting
// detail and falling back to squeue. A job absent from both is treated as
// completed: SLURM drops finished jobs from the queue.
func CheckSLURMJob(ctx context.Context, runner remote.Runner, jobID string) (JobStatus, error) {
	status := JobStatus{JobID: jobID, State: StateUnknown}

	cmd := fmt.Sprintf("sacct -j %s -n -o JobID,State,Start,End,ExitCode --parsable2", jobID)
	stdout, _, code, err := runner.Run(ctx, cmd)
	if err != nil {
		return status, err
	}

	if code == 0 {
		if parsed, ok := parseSacctOutput(jobID, stdout); ok {
			return parsed, nil
		}
		// sacct answered but had no rows yet; fall through to squeue
	}

	cmd = fmt.Sprintf("squeue -j %s -h -o %%T", jobID)
	stdout, _, code, err = runner.Run(ctx, cmd)
	if err != nil {
		return status, err
	}
	if code == 0 {
		if raw := strings.TrimSpace(stdout); raw != "" {
			status.RawState = raw
			status.State = ParseSLURMState(raw)
			return status, nil
		}
	}

	status.State = StateCompleted
	return status, nil
}

// parseSacctOutput extracts the parent job row from parsable2 output. Rows
// for job steps (ID contains a dot) are skipped.
func parseSacctOutput(jobID, output string) (JobStatus, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 || strings.Contains(parts[0], ".") {
			continue
		}

		status := JobStatus{
			JobID:    jobID,
			RawState: parts[1],
			State:    ParseSLURMState(parts[1]),
		}
		if len(parts) > 2 {
			status.Start = parts[2]
		}
		if len(parts) > 3 {
			status.End = parts[3]
		}
		if len(parts) > 4 {
			status.ExitCode = parts[4]
		}
		return status, true
	}
	return JobStatus{}, false
}

// CheckPBSJob queries one PBS job via qstat -f. A non-zero exit means the
// job has left the queue, which PBS only does on completion.
func CheckPBSJob(ctx context.Context, runner remote.Runner, jobID string) (JobStatus, error) {
	status := JobStatus{JobID: jobID, State: StateUnknown}

	stdout, _, code, err := runner.Run(ctx, fmt.Sprintf("qstat -f %s", jobID))
	if err != nil {
		return status, err
	}
	if code != 0 {
		status.State = StateCompleted
		return status, nil
	}

	attrs := parseQstatOutput(stdout)
	status.RawState = attrs["job_state"]
	status.State = ParsePBSState(status.RawState)
	status.Start = attrs["start_time"]
	status.ExitCode = attrs["exit_status"]
	return status, nil
}

// parseQstatOutput parses qstat -f key = value attributes, folding indented
// continuation lines into the previous value.
func parseQstatOutput(output string) map[string]string {
	attrs := make(map[string]string)
	var current string

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		isContinuation := strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ")
		if isContinuation && current != "" && !strings.Contains(trimmed, " = ") {
			attrs[current] += trimmed
			continue
		}

		if key, value, found := strings.Cut(trimmed, " = "); found {
			key = strings.TrimSpace(key)
			attrs[key] = strings.TrimSpace(value)
			current = key
		}
	}
	return attrs
}

// CheckJob dispatches to the scheduler-specific checker.
func CheckJob(ctx context.Context, runner remote.Runner, scheduler, jobID string) (JobStatus, error) {
	if scheduler == "PBS" {
		return CheckPBSJob(ctx, runner, jobID)
	}
	return CheckSLURMJob(ctx, runner, jobID)
}
