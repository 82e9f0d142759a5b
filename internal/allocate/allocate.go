// Package allocate matches CFX job resource requirements to cluster nodes.
package allocate

import (
	"sort"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
)

// JobRequirement describes the resources one CFX job needs.
type JobRequirement struct {
	ID       string
	Cores    int   // required core count, > 0
	MemoryMB int64 // optional; 0 means no memory constraint
	Nodes    int   // required node count; 0 or 1 selects the single-node path
}

// NodeAssignment is the share of one node given to a job.
type NodeAssignment struct {
	Name  string
	Cores int
}

// Allocation maps a job to the node(s) it was placed on.
type Allocation struct {
	JobID string
	Nodes []NodeAssignment
}

// TotalCores returns the core count assigned across all nodes.
func (a *Allocation) TotalCores() int {
	total := 0
	for _, n := range a.Nodes {
		total += n.Cores
	}
	return total
}

// Reason classifies why a job could not be allocated.
type Reason int

const (
	// ReasonNoNodesFree: the demand would fit the cluster, but no schedulable
	// capacity remains in this planning pass.
	ReasonNoNodesFree Reason = iota
	// ReasonInsufficientCapacity: the demand exceeds the largest schedulable
	// node (or, multi-node, the combined schedulable capacity).
	ReasonInsufficientCapacity
)

func (r Reason) String() string {
	switch r {
	case ReasonInsufficientCapacity:
		return "insufficient capacity"
	default:
		return "no nodes free"
	}
}

// UnallocatedJob is a job the allocator could not place, with the reason.
type UnallocatedJob struct {
	Job    JobRequirement
	Reason Reason
}

// Options tunes the allocation pass.
type Options struct {
	// ReuseResidual controls whether a node that already absorbed a job in
	// this pass is offered to later jobs while capacity remains. When false
	// the allocator always prefers a fresh node and treats partially used
	// nodes as full.
	ReuseResidual bool
}

// DefaultOptions returns the standard allocation options (residual reuse on).
func DefaultOptions() Options {
	return Options{ReuseResidual: true}
}

// Result holds the outcome of one allocation pass.
type Result struct {
	Allocations []Allocation
	Unallocated []UnallocatedJob
}

// FullyAllocated reports whether every job was placed.
func (r *Result) FullyAllocated() bool {
	return len(r.Unallocated) == 0
}

// capacityRecord is one entry of the per-pass arena. The arena is rebuilt
// fresh for every Allocate call from the caller's node snapshot, so the
// caller's slice is never mutated and no state leaks between passes.
type capacityRecord struct {
	index     int // position in the source node list, for deterministic ties
	name      string
	remaining int
	original  int
	memoryMB  int64
	used      bool
}

func buildArena(nodes []cluster.NodeResource) []*capacityRecord {
	arena := make([]*capacityRecord, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if !n.Schedulable() {
			continue
		}
		arena = append(arena, &capacityRecord{
			index:     i,
			name:      n.Name,
			remaining: n.AvailableCores,
			original:  n.AvailableCores,
			memoryMB:  n.MemoryMB,
		})
	}
	return arena
}

// Allocate places jobs onto nodes using the single-node-priority heuristic:
// each job goes to the smallest node that still satisfies it, so a 28-core
// job never occupies a 64-core node while a 28-core node is free. Jobs are
// processed in input order; assigned capacity is consumed for the rest of the
// pass, so no node is double-booked. Unsatisfiable jobs are returned in
// Unallocated with a reason; Allocate never fails on unsatisfiable demand.
func Allocate(jobs []JobRequirement, nodes []cluster.NodeResource, opts Options) *Result {
	arena := buildArena(nodes)
	result := &Result{}

	for _, job := range jobs {
		cores := job.Cores
		if cores <= 0 {
			cores = 1
		}

		if job.Nodes > 1 {
			alloc, reason := allocateMultiNode(job, cores, arena)
			if alloc != nil {
				result.Allocations = append(result.Allocations, *alloc)
			} else {
				result.Unallocated = append(result.Unallocated, UnallocatedJob{Job: job, Reason: reason})
			}
			continue
		}

		best := pickSmallestSufficient(arena, cores, job.MemoryMB, opts.ReuseResidual)
		if best == nil {
			result.Unallocated = append(result.Unallocated, UnallocatedJob{
				Job:    job,
				Reason: classifyFailure(arena, cores),
			})
			continue
		}

		best.remaining -= cores
		best.used = true
		result.Allocations = append(result.Allocations, Allocation{
			JobID: job.ID,
			Nodes: []NodeAssignment{{Name: best.name, Cores: cores}},
		})
	}

	return result
}

// pickSmallestSufficient selects the arena record with the least remaining
// capacity that still covers the demand. Ties break on source order.
func pickSmallestSufficient(arena []*capacityRecord, cores int, memMB int64, reuseResidual bool) *capacityRecord {
	var best *capacityRecord
	for _, rec := range arena {
		if rec.remaining < cores {
			continue
		}
		if rec.used && !reuseResidual {
			continue
		}
		if memMB > 0 && rec.memoryMB > 0 && rec.memoryMB < memMB {
			continue
		}
		if best == nil || rec.remaining < best.remaining ||
			(rec.remaining == best.remaining && rec.index < best.index) {
			best = rec
		}
	}
	return best
}

// classifyFailure separates "the cluster can never fit this job" from
// "capacity is merely consumed right now".
func classifyFailure(arena []*capacityRecord, cores int) Reason {
	if len(arena) == 0 {
		return ReasonNoNodesFree
	}
	maxOriginal := 0
	for _, rec := range arena {
		if rec.original > maxOriginal {
			maxOriginal = rec.original
		}
	}
	if cores > maxOriginal {
		return ReasonInsufficientCapacity
	}
	return ReasonNoNodesFree
}

// allocateMultiNode is the explicit multi-node path: the job asked for N
// nodes, so capacity is combined largest-first across exactly N records.
// This path is only entered when the job requests more than one node; it is
// never silently chosen over a single-node match.
func allocateMultiNode(job JobRequirement, cores int, arena []*capacityRecord) (*Allocation, Reason) {
	candidates := make([]*capacityRecord, 0, len(arena))
	for _, rec := range arena {
		if rec.remaining > 0 {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil, ReasonNoNodesFree
	}
	if len(candidates) < job.Nodes {
		return nil, ReasonInsufficientCapacity
	}

	// Largest remaining first; ties keep source order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].remaining > candidates[j].remaining
	})
	chosen := candidates[:job.Nodes]

	combined := 0
	for _, rec := range chosen {
		combined += rec.remaining
	}
	if combined < cores {
		return nil, ReasonInsufficientCapacity
	}

	// Greedy largest-first fill. Combined capacity covers the demand, so the
	// loop always drains left to zero; nodes past that point take nothing.
	alloc := &Allocation{JobID: job.ID}
	left := cores
	for _, rec := range chosen {
		if left <= 0 {
			break
		}
		take := rec.remaining
		if take > left {
			take = left
		}
		rec.remaining -= take
		rec.used = true
		alloc.Nodes = append(alloc.Nodes, NodeAssignment{Name: rec.name, Cores: take})
		left -= take
	}
	return alloc, ReasonNoNodesFree
}
