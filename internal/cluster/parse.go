package cluster

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// nodeParser converts raw scheduler status text into node records.
// Parsers fail soft per record: one malformed block never aborts the batch.
type nodeParser func(raw string) ([]NodeResource, []error)

// parsers is the scheduler-kind dispatch table.
var parsers = map[SchedulerKind]nodeParser{
	SchedulerPBS:   parsePbsNodes,
	SchedulerSLURM: parseSlurmNodes,
}

// ParseNodes parses raw scheduler status text (pbsnodes -a or sinfo output)
// into a normalized node list. Source order is preserved so later allocation
// tie-breaks are deterministic. Malformed records are skipped and reported in
// the returned error slice; parsing itself only fails hard on an unknown
// scheduler kind.
func ParseNodes(raw string, kind SchedulerKind) ([]NodeResource, []error, error) {
	parse, ok := parsers[kind]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, kind)
	}
	nodes, recordErrs := parse(raw)
	return nodes, recordErrs, nil
}

var firstIntRe = regexp.MustCompile(`\d+`)

// parseCPUCount extracts the first integer run from a core-count field.
// sinfo can report "28+" on heterogeneous partitions; pbsnodes np is plain.
func parseCPUCount(s string) (int, error) {
	m := firstIntRe.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("no digits in core count %q", s)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	return n, nil
}

var memRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([KMGT]?B?)$`)

// parseMemoryMB converts memory strings like "64G", "500M", "1048576kb" or a
// bare number (taken as MB) into megabytes.
func parseMemoryMB(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty memory value")
	}
	m := memRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid memory value %q", s)
	}
	size, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	switch {
	case strings.HasPrefix(m[2], "K"):
		return int64(size / 1024), nil
	case strings.HasPrefix(m[2], "G"):
		return int64(size * 1024), nil
	case strings.HasPrefix(m[2], "T"):
		return int64(size * 1024 * 1024), nil
	default:
		return int64(size), nil
	}
}
