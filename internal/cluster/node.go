// Package cluster queries and parses HPC cluster node status for SLURM and PBS.
package cluster

// SchedulerKind identifies the scheduler whose status text is being parsed.
type SchedulerKind string

const (
	SchedulerUnknown SchedulerKind = ""
	SchedulerSLURM   SchedulerKind = "SLURM"
	SchedulerPBS     SchedulerKind = "PBS"
)

// NodeState is the normalized scheduling state of a node.
type NodeState int

const (
	StateUnknown NodeState = iota
	StateFree
	StateBusy
	StateDown
)

func (s NodeState) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateBusy:
		return "busy"
	case StateDown:
		return "down"
	default:
		return "unknown"
	}
}

// NodeResource describes one compute node as reported by the scheduler.
// A fresh list is built on every query cycle; the allocator works on its
// own capacity overlay and never mutates these records.
type NodeResource struct {
	Name           string
	TotalCores     int
	AvailableCores int
	MemoryMB       int64
	State          NodeState
	Partition      string   // SLURM partition (empty for PBS)
	Properties     []string // PBS node properties (nil for SLURM)
}

// Schedulable reports whether the node can accept new work.
func (n *NodeResource) Schedulable() bool {
	return n.State == StateFree && n.AvailableCores > 0
}

// Summary aggregates counts over a node list.
type Summary struct {
	TotalNodes     int
	FreeNodes      int
	BusyNodes      int
	DownNodes      int
	UnknownNodes   int
	TotalCores     int
	AvailableCores int
	TotalMemoryMB  int64
}

// Summarize computes aggregate counts for a node list.
func Summarize(nodes []NodeResource) Summary {
	var s Summary
	s.TotalNodes = len(nodes)
	for i := range nodes {
		n := &nodes[i]
		s.TotalCores += n.TotalCores
		s.TotalMemoryMB += n.MemoryMB
		switch n.State {
		case StateFree:
			s.FreeNodes++
			s.AvailableCores += n.AvailableCores
		case StateBusy:
			s.BusyNodes++
		case StateDown:
			s.DownNodes++
		default:
			s.UnknownNodes++
		}
	}
	return s
}

// FilterAvailable returns the schedulable nodes matching the given minimum
// core and memory requirements and (if non-empty) the given partition.
// Source order is preserved.
func FilterAvailable(nodes []NodeResource, minCores int, minMemMB int64, partition string) []NodeResource {
	var out []NodeResource
	for _, n := range nodes {
		if !n.Schedulable() {
			continue
		}
		if n.AvailableCores < minCores {
			continue
		}
		if minMemMB > 0 && n.MemoryMB < minMemMB {
			continue
		}
		if partition != "" && n.Partition != partition {
			continue
		}
		out = append(out, n)
	}
	return out
}
