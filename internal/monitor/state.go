// Package monitor tracks submitted jobs on the cluster until completion and
// drives plan batch advancement.
package monitor

import "strings"

// JobState is the normalized scheduler-independent job state.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
	StateTimeout   JobState = "timeout"
	StateUnknown   JobState = "unknown"
)

// Terminal reports whether a job in this state will never progress further.
func (s JobState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateTimeout:
		return true
	}
	return false
}

var slurmStateMap = map[string]JobState{
	"PENDING":       StatePending,
	"RUNNING":       StateRunning,
	"COMPLETED":     StateCompleted,
	"CANCELLED":     StateCancelled,
	"FAILED":        StateFailed,
	"TIMEOUT":       StateTimeout,
	"NODE_FAIL":     StateFailed,
	"PREEMPTED":     StateCancelled,
	"OUT_OF_MEMORY": StateFailed,
}

// ParseSLURMState maps a SLURM state string to a JobState. sacct reports
// "CANCELLED by <uid>" for user cancels; only the first token matters.
func ParseSLURMState(raw string) JobState {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if fields := strings.Fields(token); len(fields) > 0 {
		token = fields[0]
	}
	token = strings.TrimSuffix(token, "+")
	if state, ok := slurmStateMap[token]; ok {
		return state
	}
	return StateUnknown
}

var pbsStateMap = map[string]JobState{
	"Q": StatePending,   // queued
	"H": StatePending,   // held
	"W": StatePending,   // waiting
	"S": StatePending,   // suspended
	"R": StateRunning,   // running
	"T": StateRunning,   // transferring
	"C": StateCompleted, // completed
	"E": StateCompleted, // exiting
}

// ParsePBSState maps a single-letter PBS job_state to a JobState.
func ParsePBSState(raw string) JobState {
	if state, ok := pbsStateMap[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return state
	}
	return StateUnknown
}
