package allocate

import (
	"testing"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
)

func freeNode(name string, cores int) cluster.NodeResource {
	return cluster.NodeResource{
		Name:           name,
		TotalCores:     cores,
		AvailableCores: cores,
		State:          cluster.StateFree,
	}
}

func TestSingleNodePriority(t *testing.T) {
	// A 28-core job must take the 28-core node even when a 64-core node is
	// listed first.
	nodes := []cluster.NodeResource{
		freeNode("big", 64),
		freeNode("small", 28),
	}
	jobs := []JobRequirement{{ID: "job1", Cores: 28}}

	result := Allocate(jobs, nodes, DefaultOptions())
	if !result.FullyAllocated() {
		t.Fatalf("expected full allocation, unallocated: %+v", result.Unallocated)
	}
	got := result.Allocations[0]
	if len(got.Nodes) != 1 || got.Nodes[0].Name != "small" {
		t.Errorf("job1 placed on %+v, want the 28-core node", got.Nodes)
	}
	if got.Nodes[0].Cores != 28 {
		t.Errorf("job1 assigned %d cores, want 28", got.Nodes[0].Cores)
	}
}

func TestCapacityConsumedWithinPass(t *testing.T) {
	// Two 28-core jobs on one 28-core and one 64-core node: the second job
	// must not double-book the small node.
	nodes := []cluster.NodeResource{
		freeNode("small", 28),
		freeNode("big", 64),
	}
	jobs := []JobRequirement{
		{ID: "job1", Cores: 28},
		{ID: "job2", Cores: 28},
	}

	result := Allocate(jobs, nodes, DefaultOptions())
	if !result.FullyAllocated() {
		t.Fatalf("expected full allocation, unallocated: %+v", result.Unallocated)
	}
	if result.Allocations[0].Nodes[0].Name != "small" {
		t.Errorf("job1 on %s, want small", result.Allocations[0].Nodes[0].Name)
	}
	if result.Allocations[1].Nodes[0].Name != "big" {
		t.Errorf("job2 on %s, want big", result.Allocations[1].Nodes[0].Name)
	}
}

func TestResidualReuse(t *testing.T) {
	// A 64-core node absorbing a 28-core job keeps 36 cores. Whether a later
	// job may use them is controlled by Options.ReuseResidual.
	nodes := []cluster.NodeResource{freeNode("big", 64)}
	jobs := []JobRequirement{
		{ID: "job1", Cores: 28},
		{ID: "job2", Cores: 28},
	}

	reuse := Allocate(jobs, nodes, Options{ReuseResidual: true})
	if !reuse.FullyAllocated() {
		t.Fatalf("reuse on: expected both jobs placed, unallocated: %+v", reuse.Unallocated)
	}
	if reuse.Allocations[1].Nodes[0].Name != "big" {
		t.Errorf("reuse on: job2 on %s, want big", reuse.Allocations[1].Nodes[0].Name)
	}

	fresh := Allocate(jobs, nodes, Options{ReuseResidual: false})
	if len(fresh.Allocations) != 1 || len(fresh.Unallocated) != 1 {
		t.Fatalf("reuse off: expected 1 allocated + 1 unallocated, got %d/%d",
			len(fresh.Allocations), len(fresh.Unallocated))
	}
	if fresh.Unallocated[0].Reason != ReasonNoNodesFree {
		t.Errorf("reuse off: reason = %v, want no nodes free", fresh.Unallocated[0].Reason)
	}
}

func TestInsufficientCapacityReason(t *testing.T) {
	// 128-core job, largest node 64 cores: a specific insufficient-capacity
	// reason, not conflated with "no nodes free".
	nodes := []cluster.NodeResource{
		freeNode("a", 64),
		freeNode("b", 28),
	}
	jobs := []JobRequirement{{ID: "huge", Cores: 128}}

	result := Allocate(jobs, nodes, DefaultOptions())
	if len(result.Allocations) != 0 || len(result.Unallocated) != 1 {
		t.Fatalf("expected only unallocated, got %+v", result)
	}
	if result.Unallocated[0].Reason != ReasonInsufficientCapacity {
		t.Errorf("reason = %v, want insufficient capacity", result.Unallocated[0].Reason)
	}
}

func TestZeroNodes(t *testing.T) {
	jobs := []JobRequirement{
		{ID: "job1", Cores: 8},
		{ID: "job2", Cores: 8},
	}

	result := Allocate(jobs, nil, DefaultOptions())
	if len(result.Unallocated) != 2 {
		t.Fatalf("expected all jobs unallocated, got %+v", result)
	}
	for _, u := range result.Unallocated {
		if u.Reason != ReasonNoNodesFree {
			t.Errorf("job %s reason = %v, want no nodes free", u.Job.ID, u.Reason)
		}
	}
}

func TestBusyNodesNotSchedulable(t *testing.T) {
	nodes := []cluster.NodeResource{
		{Name: "busy", TotalCores: 64, AvailableCores: 0, State: cluster.StateBusy},
		{Name: "down", TotalCores: 64, AvailableCores: 64, State: cluster.StateDown},
	}
	result := Allocate([]JobRequirement{{ID: "job1", Cores: 8}}, nodes, DefaultOptions())
	if len(result.Unallocated) != 1 || result.Unallocated[0].Reason != ReasonNoNodesFree {
		t.Fatalf("expected no-nodes-free, got %+v", result)
	}
}

func TestMemoryConstraint(t *testing.T) {
	nodes := []cluster.NodeResource{
		{Name: "small-mem", TotalCores: 28, AvailableCores: 28, MemoryMB: 32768, State: cluster.StateFree},
		{Name: "big-mem", TotalCores: 64, AvailableCores: 64, MemoryMB: 262144, State: cluster.StateFree},
	}
	jobs := []JobRequirement{{ID: "job1", Cores: 16, MemoryMB: 65536}}

	result := Allocate(jobs, nodes, DefaultOptions())
	if !result.FullyAllocated() {
		t.Fatalf("expected allocation, got %+v", result.Unallocated)
	}
	if result.Allocations[0].Nodes[0].Name != "big-mem" {
		t.Errorf("memory-bound job placed on %s, want big-mem", result.Allocations[0].Nodes[0].Name)
	}
}

func TestMultiNodeAllocation(t *testing.T) {
	nodes := []cluster.NodeResource{
		freeNode("n41", 28),
		freeNode("n42", 28),
		freeNode("n61", 16),
	}
	jobs := []JobRequirement{{ID: "wide", Cores: 44, Nodes: 2}}

	result := Allocate(jobs, nodes, DefaultOptions())
	if !result.FullyAllocated() {
		t.Fatalf("expected allocation, got %+v", result.Unallocated)
	}
	alloc := result.Allocations[0]
	if len(alloc.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %+v", alloc.Nodes)
	}
	if alloc.TotalCores() != 44 {
		t.Errorf("assigned %d cores, want 44", alloc.TotalCores())
	}
}

func TestMultiNodeNeverForSingleNodeJob(t *testing.T) {
	// Without an explicit node-count request a job that fits no single node
	// stays unallocated rather than being split.
	nodes := []cluster.NodeResource{
		freeNode("n41", 28),
		freeNode("n42", 28),
	}
	jobs := []JobRequirement{{ID: "job1", Cores: 40}}

	result := Allocate(jobs, nodes, DefaultOptions())
	if len(result.Allocations) != 0 {
		t.Fatalf("single-node job must not be split: %+v", result.Allocations)
	}
	if result.Unallocated[0].Reason != ReasonInsufficientCapacity {
		t.Errorf("reason = %v, want insufficient capacity", result.Unallocated[0].Reason)
	}
}

func TestMultiNodeInsufficientCombined(t *testing.T) {
	nodes := []cluster.NodeResource{
		freeNode("n41", 16),
		freeNode("n42", 16),
	}
	jobs := []JobRequirement{{ID: "wide", Cores: 64, Nodes: 2}}

	result := Allocate(jobs, nodes, DefaultOptions())
	if len(result.Unallocated) != 1 || result.Unallocated[0].Reason != ReasonInsufficientCapacity {
		t.Fatalf("expected insufficient capacity, got %+v", result)
	}
}

func TestAllocateFromParsedPbsText(t *testing.T) {
	// End-to-end scenario: n44 (np=28, inflated ncpus=56) and n45 (np=16),
	// one 28-core job. The job lands on n44 with nothing left over and n45
	// untouched.
	raw := `n44
     state = free
     np = 28
     status = ncpus=56,totmem=67108864kb

n45
     state = free
     np = 16
`
	nodes, recordErrs, err := cluster.ParseNodes(raw, cluster.SchedulerPBS)
	if err != nil || len(recordErrs) != 0 {
		t.Fatalf("parse failed: %v %v", err, recordErrs)
	}

	result := Allocate([]JobRequirement{{ID: "job1", Cores: 28}}, nodes, DefaultOptions())
	if !result.FullyAllocated() {
		t.Fatalf("expected allocation, got %+v", result.Unallocated)
	}
	alloc := result.Allocations[0]
	if alloc.Nodes[0].Name != "n44" || alloc.Nodes[0].Cores != 28 {
		t.Errorf("job1 on %+v, want all 28 cores of n44", alloc.Nodes)
	}

	// A follow-up 16-core job must still fit on the untouched n45.
	both := Allocate([]JobRequirement{
		{ID: "job1", Cores: 28},
		{ID: "job2", Cores: 16},
	}, nodes, DefaultOptions())
	if !both.FullyAllocated() {
		t.Fatalf("expected both jobs placed, got %+v", both.Unallocated)
	}
	if both.Allocations[1].Nodes[0].Name != "n45" {
		t.Errorf("job2 on %s, want n45", both.Allocations[1].Nodes[0].Name)
	}
}

func TestCallerSliceNotMutated(t *testing.T) {
	nodes := []cluster.NodeResource{freeNode("n1", 28)}
	Allocate([]JobRequirement{{ID: "job1", Cores: 28}}, nodes, DefaultOptions())
	if nodes[0].AvailableCores != 28 {
		t.Errorf("caller's node slice was mutated: %d available", nodes[0].AvailableCores)
	}
}
