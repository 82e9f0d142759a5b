package cluster

import (
	"reflect"
	"testing"
)

const sinfoSample = `cn01|32|128000|idle|cpu-low|ib,avx2
cn02|32|128000|mix|cpu-low|ib,avx2
cn03|32|128000|alloc|cpu-low|ib
cn04|64|256000|drain*|cpu-high|ib
cn05|64|256000|down|cpu-high|
`

func TestParseSlurmNodes(t *testing.T) {
	nodes, errs := parseSlurmNodes(sinfoSample)
	if len(errs) != 0 {
		t.Fatalf("unexpected record errors: %v", errs)
	}
	if len(nodes) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(nodes))
	}

	tests := []struct {
		idx       int
		name      string
		cores     int
		avail     int
		state     NodeState
		partition string
	}{
		{0, "cn01", 32, 32, StateFree, "cpu-low"},
		{1, "cn02", 32, 32, StateFree, "cpu-low"},
		{2, "cn03", 32, 0, StateBusy, "cpu-low"},
		{3, "cn04", 64, 0, StateDown, "cpu-high"},
		{4, "cn05", 64, 0, StateDown, "cpu-high"},
	}
	for _, tt := range tests {
		n := nodes[tt.idx]
		if n.Name != tt.name || n.TotalCores != tt.cores || n.AvailableCores != tt.avail ||
			n.State != tt.state || n.Partition != tt.partition {
			t.Errorf("node %d = %+v, want {%s %d %d %v %s}",
				tt.idx, n, tt.name, tt.cores, tt.avail, tt.state, tt.partition)
		}
	}
	if nodes[0].MemoryMB != 128000 {
		t.Errorf("cn01 memory = %d, want 128000", nodes[0].MemoryMB)
	}
}

func TestParseSlurmStateSuffixes(t *testing.T) {
	tests := []struct {
		state string
		want  NodeState
	}{
		{"idle~", StateFree},
		{"mix#", StateFree},
		{"alloc+", StateBusy},
		{"drain*", StateDown},
		{"down$", StateDown},
	}
	for _, tt := range tests {
		nodes, errs := parseSlurmNodes("n1|8|16000|" + tt.state + "|p|")
		if len(errs) != 0 || len(nodes) != 1 {
			t.Fatalf("state %q: nodes=%d errs=%v", tt.state, len(nodes), errs)
		}
		if nodes[0].State != tt.want {
			t.Errorf("state %q = %v, want %v", tt.state, nodes[0].State, tt.want)
		}
	}
}

func TestParseSlurmBadRowsSkipped(t *testing.T) {
	raw := "cn01|32|128000|idle|p|\ngarbage line without pipes\ncn02|notanumber|128000|idle|p|\ncn03|32|128000|idle|p|\n"
	nodes, errs := parseSlurmNodes(raw)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 good nodes, got %d", len(nodes))
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 record errors, got %d: %v", len(errs), errs)
	}
	if nodes[0].Name != "cn01" || nodes[1].Name != "cn03" {
		t.Errorf("source order not preserved: %s, %s", nodes[0].Name, nodes[1].Name)
	}
}

func TestParseSlurmIdempotent(t *testing.T) {
	first, _ := parseSlurmNodes(sinfoSample)
	second, _ := parseSlurmNodes(sinfoSample)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-parsing identical text produced different node lists")
	}
}

func TestSummarize(t *testing.T) {
	nodes, _ := parseSlurmNodes(sinfoSample)
	s := Summarize(nodes)
	if s.TotalNodes != 5 || s.FreeNodes != 2 || s.BusyNodes != 1 || s.DownNodes != 2 {
		t.Errorf("summary counts = %+v", s)
	}
	if s.TotalCores != 224 {
		t.Errorf("total cores = %d, want 224", s.TotalCores)
	}
	if s.AvailableCores != 64 {
		t.Errorf("available cores = %d, want 64", s.AvailableCores)
	}
}

func TestFilterAvailable(t *testing.T) {
	nodes, _ := parseSlurmNodes(sinfoSample)

	free := FilterAvailable(nodes, 1, 0, "")
	if len(free) != 2 {
		t.Fatalf("expected 2 schedulable nodes, got %d", len(free))
	}

	big := FilterAvailable(nodes, 64, 0, "")
	if len(big) != 0 {
		t.Errorf("no free node has 64 cores, got %d", len(big))
	}

	part := FilterAvailable(nodes, 1, 0, "cpu-high")
	if len(part) != 0 {
		t.Errorf("cpu-high has no free nodes, got %d", len(part))
	}

	mem := FilterAvailable(nodes, 1, 200000, "")
	if len(mem) != 0 {
		t.Errorf("no free node has 200 GB, got %d", len(mem))
	}
}

func TestParseMemoryMB(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"64G", 65536},
		{"500M", 500},
		{"1048576kb", 1024},
		{"128000", 128000},
		{"2T", 2097152},
	}
	for _, tt := range tests {
		got, err := parseMemoryMB(tt.in)
		if err != nil {
			t.Errorf("parseMemoryMB(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMemoryMB(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := parseMemoryMB("not-a-size"); err == nil {
		t.Errorf("expected error for invalid memory string")
	}
}

func TestParseCPUCount(t *testing.T) {
	if n, err := parseCPUCount("28+"); err != nil || n != 28 {
		t.Errorf("parseCPUCount(28+) = %d, %v", n, err)
	}
	if _, err := parseCPUCount("n/a"); err == nil {
		t.Errorf("expected error for digitless core count")
	}
}
