package cluster

import (
	"bufio"
	"strings"
)

// pbsStateMap normalizes pbsnodes state strings. Unlisted states stay Unknown.
var pbsStateMap = map[string]NodeState{
	"free":          StateFree,
	"job-exclusive": StateBusy,
	"job-sharing":   StateBusy,
	"busy":          StateBusy,
	"down":          StateDown,
	"offline":       StateDown,
	"unknown":       StateDown,
	"state-unknown": StateDown,
}

// pbsRecord accumulates one pbsnodes block before it is validated.
type pbsRecord struct {
	name       string
	np         int
	hasNp      bool
	ncpus      int
	hasNcpus   bool
	memMB      int64
	state      NodeState
	properties []string
}

// parsePbsNodes parses `pbsnodes -a` style output. Each block starts with an
// unindented node name line; attributes follow as indented `key = value`
// lines. Core count resolution is per node: the `np` attribute is
// authoritative, the `ncpus=` entry inside `status` is a fallback only when
// `np` is absent or unparsable.
func parsePbsNodes(raw string) ([]NodeResource, []error) {
	var nodes []NodeResource
	var errs []error
	var cur *pbsRecord

	flush := func() {
		if cur == nil {
			return
		}
		node, err := cur.toNode()
		if err != nil {
			errs = append(errs, err)
		} else {
			nodes = append(nodes, node)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if !indented && !strings.Contains(trimmed, "=") {
			// New node block
			flush()
			cur = &pbsRecord{name: trimmed, state: StateUnknown}
			continue
		}

		if cur == nil {
			// Attribute line outside any node block
			errs = append(errs, NewRecordError(SchedulerPBS, trimmed, "attribute outside node block"))
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "state":
			// Compound states like "down,offline" take the first token
			first := strings.TrimSpace(strings.Split(value, ",")[0])
			if st, ok := pbsStateMap[strings.ToLower(first)]; ok {
				cur.state = st
			}
		case "np":
			if n, err := parseCPUCount(value); err == nil && n > 0 {
				cur.np = n
				cur.hasNp = true
			}
		case "properties":
			if value != "" {
				for _, p := range strings.Split(value, ",") {
					if p = strings.TrimSpace(p); p != "" {
						cur.properties = append(cur.properties, p)
					}
				}
			}
		case "status":
			cur.parseStatus(value)
		}
	}
	flush()

	return nodes, errs
}

// parseStatus extracts memory and the fallback core count from the
// comma-separated pbsnodes status attribute.
func (r *pbsRecord) parseStatus(status string) {
	for _, pair := range strings.Split(status, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "ncpus":
			if n, err := parseCPUCount(value); err == nil && n > 0 {
				r.ncpus = n
				r.hasNcpus = true
			}
		case "totmem":
			if mb, err := parseMemoryMB(value); err == nil && mb > 0 {
				r.memMB = mb
			}
		case "physmem":
			if r.memMB == 0 {
				if mb, err := parseMemoryMB(value); err == nil {
					r.memMB = mb
				}
			}
		}
	}
}

// toNode validates the accumulated record. np wins over ncpus; a node with
// neither is unusable and reported as a record error.
func (r *pbsRecord) toNode() (NodeResource, error) {
	cores := 0
	switch {
	case r.hasNp:
		cores = r.np
	case r.hasNcpus:
		cores = r.ncpus
	default:
		return NodeResource{}, NewRecordError(SchedulerPBS, r.name, "no usable core count (np or ncpus)")
	}

	available := 0
	if r.state == StateFree {
		available = cores
	}

	return NodeResource{
		Name:           r.name,
		TotalCores:     cores,
		AvailableCores: available,
		MemoryMB:       r.memMB,
		State:          r.state,
		Properties:     r.properties,
	}, nil
}
