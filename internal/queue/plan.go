package queue

import (
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/allocate"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
)

// PlannedJob pairs a job with its node allocation.
type PlannedJob struct {
	Job        allocate.JobRequirement
	Allocation allocate.Allocation
}

// Batch is a group of jobs submitted together and expected to run
// concurrently. Batches execute strictly in sequence: batch N+1 is gated on
// batch N completion, as signalled by the external job monitor.
type Batch struct {
	Index int
	Jobs  []PlannedJob
}

// PlanState tracks plan execution progress.
type PlanState int

const (
	PlanBuilt PlanState = iota
	PlanInProgress
	PlanCompleted
)

func (s PlanState) String() string {
	switch s {
	case PlanInProgress:
		return "in-progress"
	case PlanCompleted:
		return "completed"
	default:
		return "built"
	}
}

// Plan is an ordered list of submission batches plus the jobs that could not
// be placed. The plan never blocks or sleeps: batch advancement is driven by
// the caller feeding completion signals through BatchDone.
type Plan struct {
	Strategy    Strategy
	Batches     []Batch
	Unallocated []allocate.UnallocatedJob

	state      PlanState
	batchIndex int
}

// PlanOptions tunes plan construction.
type PlanOptions struct {
	Allocate allocate.Options
}

// DefaultPlanOptions returns standard planning options.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{Allocate: allocate.DefaultOptions()}
}

// BuildPlan sequences jobs into submission batches under the given strategy.
//
//   - parallel: one batch holding every job with its allocated node.
//   - sequential: waves of min(free nodes, remaining jobs); node capacity is
//     reset to the full snapshot at each wave since the prior wave is assumed
//     complete before the next starts (the monitor enforces that assumption).
//   - batch: identical mechanics with the wave size pinned to the free node
//     count, giving ceil(jobs/nodes) batches.
//
// Jobs that fail allocation inside their wave are reported in
// Plan.Unallocated; plan construction itself only fails on an unknown
// strategy.
func BuildPlan(jobs []allocate.JobRequirement, nodes []cluster.NodeResource, strategy Strategy, opts PlanOptions) (*Plan, error) {
	plan := &Plan{Strategy: strategy, state: PlanBuilt}

	freeNodes := 0
	for i := range nodes {
		if nodes[i].Schedulable() {
			freeNodes++
		}
	}
	if freeNodes == 0 {
		for _, job := range jobs {
			plan.Unallocated = append(plan.Unallocated, allocate.UnallocatedJob{
				Job:    job,
				Reason: allocate.ReasonNoNodesFree,
			})
		}
		return plan, nil
	}

	switch strategy {
	case StrategyParallel:
		result := allocate.Allocate(jobs, nodes, opts.Allocate)
		plan.appendBatch(jobs, result)

	case StrategySequential, StrategyBatch:
		remaining := jobs
		for len(remaining) > 0 {
			size := freeNodes
			if strategy == StrategySequential && len(remaining) < size {
				size = len(remaining)
			}
			if size > len(remaining) {
				size = len(remaining)
			}
			wave := remaining[:size]
			remaining = remaining[size:]

			// Fresh capacity snapshot per wave: the previous wave's jobs are
			// assumed complete before this one is submitted.
			result := allocate.Allocate(wave, nodes, opts.Allocate)
			plan.appendBatch(wave, result)
		}

	default:
		return nil, NewConfigError("strategy", string(strategy), "unknown strategy")
	}

	return plan, nil
}

// appendBatch adds one wave's allocations as a batch (if any job was placed)
// and collects its unallocated jobs.
func (p *Plan) appendBatch(wave []allocate.JobRequirement, result *allocate.Result) {
	p.Unallocated = append(p.Unallocated, result.Unallocated...)
	if len(result.Allocations) == 0 {
		return
	}

	byID := make(map[string]allocate.JobRequirement, len(wave))
	for _, job := range wave {
		byID[job.ID] = job
	}

	batch := Batch{Index: len(p.Batches)}
	for _, alloc := range result.Allocations {
		batch.Jobs = append(batch.Jobs, PlannedJob{
			Job:        byID[alloc.JobID],
			Allocation: alloc,
		})
	}
	p.Batches = append(p.Batches, batch)
}

// JobCount returns the number of jobs across all batches.
func (p *Plan) JobCount() int {
	total := 0
	for _, b := range p.Batches {
		total += len(b.Jobs)
	}
	return total
}

// State returns the plan's execution state.
func (p *Plan) State() PlanState {
	return p.state
}

// Start moves the plan into InProgress at batch 0. A plan with no batches
// completes immediately.
func (p *Plan) Start() {
	if len(p.Batches) == 0 {
		p.state = PlanCompleted
		return
	}
	p.state = PlanInProgress
	p.batchIndex = 0
}

// CurrentBatch returns the batch currently in flight. ok is false when the
// plan is not in progress.
func (p *Plan) CurrentBatch() (*Batch, bool) {
	if p.state != PlanInProgress || p.batchIndex >= len(p.Batches) {
		return nil, false
	}
	return &p.Batches[p.batchIndex], true
}

// BatchDone is the caller-supplied completion signal from the job monitor.
// It advances the plan to the next batch; once the signal for the final
// batch arrives the plan is Completed (terminal).
func (p *Plan) BatchDone() error {
	switch p.state {
	case PlanBuilt:
		return ErrPlanNotStarted
	case PlanCompleted:
		return ErrPlanCompleted
	}

	p.batchIndex++
	if p.batchIndex >= len(p.Batches) {
		p.state = PlanCompleted
	}
	return nil
}
