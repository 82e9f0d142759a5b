package cluster

import (
	"context"
	"fmt"
	"strings"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/remote"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// Client fetches scheduler status text through a remote.Runner and parses it.
type Client struct {
	runner remote.Runner
	kind   SchedulerKind
}

// NewClient creates a query client for the given scheduler kind.
func NewClient(runner remote.Runner, kind SchedulerKind) *Client {
	return &Client{runner: runner, kind: kind}
}

// Kind returns the scheduler kind this client queries.
func (c *Client) Kind() SchedulerKind {
	return c.kind
}

// DetectKind probes the cluster for scheduler binaries. SLURM is checked
// first since it is the common case on the clusters this tool targets.
func DetectKind(ctx context.Context, runner remote.Runner) (SchedulerKind, error) {
	if _, _, code, err := runner.Run(ctx, "which sinfo"); err == nil && code == 0 {
		return SchedulerSLURM, nil
	}
	if _, _, code, err := runner.Run(ctx, "which pbsnodes"); err == nil && code == 0 {
		return SchedulerPBS, nil
	}
	return SchedulerUnknown, fmt.Errorf("%w: no sinfo or pbsnodes binary found", ErrQueryFailed)
}

// statusCommand returns the node-status query command for the client's kind.
func (c *Client) statusCommand() string {
	switch c.kind {
	case SchedulerSLURM:
		return fmt.Sprintf("sinfo -N -h -o '%s'", SinfoFormat)
	case SchedulerPBS:
		return "pbsnodes -a"
	default:
		return ""
	}
}

// QueryNodes runs the scheduler's node-status command and parses the output.
// Record-level parse failures are logged as warnings and do not fail the
// query; only transport or command failures are returned as errors.
func (c *Client) QueryNodes(ctx context.Context) ([]NodeResource, error) {
	cmd := c.statusCommand()
	if cmd == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, c.kind)
	}

	utils.PrintDebug("Querying cluster nodes: %s", utils.StyleCommand(cmd))
	stdout, stderr, code, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if code != 0 {
		return nil, fmt.Errorf("%w: exit %d: %s", ErrQueryFailed, code, strings.TrimSpace(stderr))
	}
	if strings.TrimSpace(stdout) == "" {
		return nil, ErrEmptyStatusText
	}

	nodes, recordErrs, err := ParseNodes(stdout, c.kind)
	if err != nil {
		return nil, err
	}
	for _, re := range recordErrs {
		utils.PrintWarning("%v", re)
	}

	utils.PrintDebug("Parsed %d nodes (%d records skipped)", len(nodes), len(recordErrs))
	return nodes, nil
}

// QueuedJob is one row of the cluster queue status.
type QueuedJob struct {
	ID     string
	Name   string
	User   string
	State  string
	Reason string
}

// QueryQueue fetches the scheduler's job queue. For SLURM this is one squeue
// row per job; for PBS the qstat output is reduced to job IDs and states.
func (c *Client) QueryQueue(ctx context.Context) ([]QueuedJob, error) {
	var cmd string
	switch c.kind {
	case SchedulerSLURM:
		cmd = "squeue -h -o '%i %j %u %t %r'"
	case SchedulerPBS:
		cmd = "qstat"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, c.kind)
	}

	stdout, stderr, code, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if code != 0 {
		return nil, fmt.Errorf("%w: exit %d: %s", ErrQueryFailed, code, strings.TrimSpace(stderr))
	}

	if c.kind == SchedulerSLURM {
		return parseSqueueOutput(stdout), nil
	}
	return parseQstatOutput(stdout), nil
}

func parseSqueueOutput(out string) []QueuedJob {
	var jobs []QueuedJob
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		job := QueuedJob{
			ID:    fields[0],
			Name:  fields[1],
			User:  fields[2],
			State: fields[3],
		}
		if len(fields) > 4 {
			job.Reason = strings.Join(fields[4:], " ")
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func parseQstatOutput(out string) []QueuedJob {
	var jobs []QueuedJob
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		// qstat rows: JobID Name User Time State Queue; skip the header rules
		if len(fields) < 5 || strings.HasPrefix(fields[0], "-") || fields[0] == "Job" {
			continue
		}
		jobs = append(jobs, QueuedJob{
			ID:    fields[0],
			Name:  fields[1],
			User:  fields[2],
			State: fields[4],
		})
	}
	return jobs
}
