package allocate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidNodesSpec indicates a PBS nodes string could not be parsed
var ErrInvalidNodesSpec = errors.New("invalid PBS nodes spec")

// NodeSpec is one node entry of a PBS `-l nodes=` resource string.
type NodeSpec struct {
	Name  string
	Procs int // processors per node (ppn)
}

// ShortNodeName normalizes long node names to the short form the PBS server
// expects in nodes strings: "node44" becomes "n44". Already-short names pass
// through unchanged.
func ShortNodeName(name string) string {
	if strings.HasPrefix(name, "node") && len(name) > 4 {
		return "n" + name[4:]
	}
	return name
}

// FormatNodesSpec renders node specs as a PBS nodes string, e.g.
// "n44:ppn=28+n45:ppn=16".
func FormatNodesSpec(specs []NodeSpec) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		parts = append(parts, fmt.Sprintf("%s:ppn=%d", ShortNodeName(s.Name), s.Procs))
	}
	return strings.Join(parts, "+")
}

// NodesSpecFromAllocation renders an allocation as a PBS nodes string.
func NodesSpecFromAllocation(alloc *Allocation) string {
	specs := make([]NodeSpec, 0, len(alloc.Nodes))
	for _, n := range alloc.Nodes {
		specs = append(specs, NodeSpec{Name: n.Name, Procs: n.Cores})
	}
	return FormatNodesSpec(specs)
}

// ParseNodesSpec is the inverse of FormatNodesSpec. Entries without an
// explicit ppn get the provided default.
func ParseNodesSpec(spec string, defaultProcs int) ([]NodeSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var out []NodeSpec
	for _, part := range strings.Split(spec, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, ppnStr, hasPpn := strings.Cut(part, ":ppn=")
		if !hasPpn {
			out = append(out, NodeSpec{Name: part, Procs: defaultProcs})
			continue
		}
		ppn, err := strconv.Atoi(strings.TrimSpace(ppnStr))
		if err != nil || ppn <= 0 {
			return nil, fmt.Errorf("%w: bad ppn in %q", ErrInvalidNodesSpec, part)
		}
		out = append(out, NodeSpec{Name: strings.TrimSpace(name), Procs: ppn})
	}
	return out, nil
}
