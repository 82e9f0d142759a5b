package cluster

import (
	"fmt"
	"strings"
)

// SinfoFormat is the sinfo output format the SLURM parser expects:
// one line per node, pipe-separated name, cores, memory, state, partition
// and feature list, without a header.
const SinfoFormat = "%N|%c|%m|%t|%P|%f"

// slurmStateMap normalizes sinfo state strings. Unlisted states stay Unknown.
var slurmStateMap = map[string]NodeState{
	"idle":       StateFree,
	"mix":        StateFree,
	"mixed":      StateFree,
	"alloc":      StateBusy,
	"allocated":  StateBusy,
	"comp":       StateBusy,
	"completing": StateBusy,
	"resv":       StateBusy,
	"reserved":   StateBusy,
	"drain":      StateDown,
	"drained":    StateDown,
	"draining":   StateDown,
	"down":       StateDown,
	"fail":       StateDown,
	"failing":    StateDown,
	"maint":      StateDown,
	"unknown":    StateDown,
}

// sinfo decorates states with suffix flags (e.g. "idle~" powered down,
// "drain*" unresponsive); strip them before the lookup.
const slurmStateSuffixes = "*~#%$@+"

// parseSlurmNodes parses pipe-tabular `sinfo -N -h` output (SinfoFormat).
// Rows that do not carry at least name, cores, memory and state are skipped
// soft; source order is preserved.
func parseSlurmNodes(raw string) ([]NodeResource, []error) {
	var nodes []NodeResource
	var errs []error

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 4 {
			errs = append(errs, NewRecordError(SchedulerSLURM, line,
				fmt.Sprintf("expected at least 4 columns, got %d", len(parts))))
			continue
		}

		name := strings.TrimSpace(parts[0])
		if name == "" {
			errs = append(errs, NewRecordError(SchedulerSLURM, line, "empty node name"))
			continue
		}

		cores, err := parseCPUCount(strings.TrimSpace(parts[1]))
		if err != nil || cores <= 0 {
			errs = append(errs, NewRecordError(SchedulerSLURM, name, "unparsable core count"))
			continue
		}

		memMB, err := parseMemoryMB(strings.TrimSpace(parts[2]))
		if err != nil {
			// Memory is informational; a bad value does not reject the node
			memMB = 0
		}

		stateStr := strings.ToLower(strings.TrimRight(strings.TrimSpace(parts[3]), slurmStateSuffixes))
		state, ok := slurmStateMap[stateStr]
		if !ok {
			state = StateUnknown
		}

		partition := ""
		if len(parts) > 4 {
			partition = strings.TrimSuffix(strings.TrimSpace(parts[4]), "*")
		}

		available := 0
		if state == StateFree {
			available = cores
		}

		nodes = append(nodes, NodeResource{
			Name:           name,
			TotalCores:     cores,
			AvailableCores: available,
			MemoryMB:       memMB,
			State:          state,
			Partition:      partition,
		})
	}

	return nodes, errs
}
