package scripts

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/allocate"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
)

func testSettings() *config.Settings {
	config.LoadDefaults()
	s := config.Global
	s.CfxHome = "/usr/ansys_inc/v231/CFX"
	return &s
}

func testPlan(t *testing.T, jobCount, nodeCount int, strategy queue.Strategy) *queue.Plan {
	t.Helper()
	jobs := make([]allocate.JobRequirement, jobCount)
	for i := range jobs {
		jobs[i] = allocate.JobRequirement{ID: "218" + string(rune('0'+i)), Cores: 28}
	}
	nodes := make([]cluster.NodeResource, nodeCount)
	for i := range nodes {
		nodes[i] = cluster.NodeResource{
			Name:           "n4" + string(rune('0'+i)),
			TotalCores:     28,
			AvailableCores: 28,
			State:          cluster.StateFree,
		}
	}
	plan, err := queue.BuildPlan(jobs, nodes, strategy, queue.DefaultPlanOptions())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	return plan
}

func TestJobsFromPlan(t *testing.T) {
	cfg := testSettings()
	plan := testPlan(t, 2, 4, queue.StrategyParallel)

	jobs := JobsFromPlan(cfg, plan, "/work")
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	job := jobs[0]
	if job.Name != "CFX_Job_2180" {
		t.Errorf("job name = %q", job.Name)
	}
	if job.CaseDir != filepath.Join("/work", "P_Out_2180") {
		t.Errorf("case dir = %q", job.CaseDir)
	}
	if job.DefFile != "P_Out_2180.def" {
		t.Errorf("def file = %q", job.DefFile)
	}
	if job.Cores != 28 || job.Nodes != 1 {
		t.Errorf("resources = %d cores / %d nodes", job.Cores, job.Nodes)
	}
	if len(job.Nodelist) != 1 {
		t.Errorf("nodelist = %v", job.Nodelist)
	}
	if job.Pressure != 2180 {
		t.Errorf("pressure = %g", job.Pressure)
	}
}

func TestWriteSLURMScript(t *testing.T) {
	cfg := testSettings()
	job := &JobSpec{
		Tag:      "2187",
		Name:     "CFX_Job_2187",
		CaseDir:  "/work/P_Out_2187",
		DefFile:  "P_Out_2187.def",
		Cores:    28,
		Nodes:    1,
		MemoryMB: 65536,
		Nodelist: []string{"n44"},
	}

	var buf bytes.Buffer
	if err := WriteSLURMScript(&buf, cfg, job); err != nil {
		t.Fatalf("WriteSLURMScript: %v", err)
	}
	body := buf.String()

	for _, want := range []string{
		"#SBATCH --job-name=CFX_Job_2187",
		"#SBATCH --output=CFX_Job_2187.out",
		"#SBATCH --error=CFX_Job_2187.err",
		"#SBATCH --partition=cpu-low",
		"#SBATCH --nodes=1",
		"#SBATCH --ntasks-per-node=28",
		"#SBATCH --time=7-00:00:00",
		"#SBATCH --mem=64G",
		"#SBATCH --nodelist=n44",
		"export PATH=/usr/ansys_inc/v231/CFX/bin:$PATH",
		"-def P_Out_2187.def",
		"-ini-file INI.res",
		"-part 28",
		"Platform MPI Local Parallel",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("script missing %q", want)
		}
	}
	if strings.Contains(body, "\r\n") {
		t.Errorf("script must use LF line endings")
	}
}

func TestWriteSLURMScriptDistributed(t *testing.T) {
	cfg := testSettings()
	job := &JobSpec{
		Name:      "CFX_Job_2191",
		DefFile:   "P_Out_2191.def",
		Cores:     44,
		Nodes:     2,
		MemoryMB:  65536,
		Nodelist:  []string{"n44", "n45"},
		NodesSpec: "n44:ppn=28+n45:ppn=16",
	}

	var buf bytes.Buffer
	if err := WriteSLURMScript(&buf, cfg, job); err != nil {
		t.Fatalf("WriteSLURMScript: %v", err)
	}
	body := buf.String()

	for _, want := range []string{
		"#SBATCH --nodes=2",
		"#SBATCH --nodelist=n44,n45",
		"-par-dist n44:ppn=28+n45:ppn=16",
		"Platform MPI Distributed Parallel",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("script missing %q", want)
		}
	}
	if strings.Contains(body, "-part ") {
		t.Errorf("distributed run must not use local partitioning")
	}
}

func TestWritePBSScript(t *testing.T) {
	cfg := testSettings()
	cfg.Scheduler = "PBS"
	job := &JobSpec{
		Name:      "CFX_Job_2187",
		DefFile:   "P_Out_2187.def",
		Cores:     44,
		Nodes:     2,
		MemoryMB:  65536,
		NodesSpec: "n44:ppn=28+n45:ppn=16",
	}

	var buf bytes.Buffer
	if err := WritePBSScript(&buf, cfg, job); err != nil {
		t.Fatalf("WritePBSScript: %v", err)
	}
	body := buf.String()

	for _, want := range []string{
		"#PBS -N CFX_Job_2187",
		"#PBS -q cpu-low",
		"#PBS -l nodes=n44:ppn=28+n45:ppn=16",
		"#PBS -l walltime=168:00:00",
		"#PBS -l mem=64gb",
		"cd $PBS_O_WORKDIR",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestPBSNodesResourceFallback(t *testing.T) {
	cfg := testSettings()
	job := &JobSpec{Nodes: 1, Cores: 16}
	if got := pbsNodesResource(cfg, job); got != "1:ppn=16" {
		t.Errorf("fallback nodes resource = %q", got)
	}
}

func TestGenerateJobScripts(t *testing.T) {
	cfg := testSettings()
	dir := t.TempDir()
	plan := testPlan(t, 2, 4, queue.StrategyParallel)

	paths, err := GenerateJobScripts(cfg, plan, dir)
	if err != nil {
		t.Fatalf("GenerateJobScripts: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(paths))
	}

	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			t.Fatalf("script not written: %v", err)
		}
		if fi.Mode()&0111 == 0 {
			t.Errorf("script %s not executable", p)
		}
		if filepath.Ext(p) != ".slurm" {
			t.Errorf("unexpected script name %s", p)
		}
	}
}

func TestWriteSubmitScriptBatches(t *testing.T) {
	cfg := testSettings()
	plan := testPlan(t, 4, 2, queue.StrategyBatch)
	if len(plan.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(plan.Batches))
	}

	var buf bytes.Buffer
	if err := WriteSubmitScript(&buf, cfg, plan, "/work"); err != nil {
		t.Fatalf("WriteSubmitScript: %v", err)
	}
	body := buf.String()

	if !strings.Contains(body, "Submitting batch 1") || !strings.Contains(body, "Submitting batch 2") {
		t.Errorf("submit script missing batch sections")
	}
	// The first batch waits for completion, the last does not
	if strings.Count(body, "Waiting for batch") != 1 {
		t.Errorf("expected exactly one inter-batch wait, got:\n%s", body)
	}
	if !strings.Contains(body, JobIDsFilename) {
		t.Errorf("submit script must record job ids")
	}
	if !strings.Contains(body, "sbatch") {
		t.Errorf("submit script must use sbatch for SLURM")
	}
}

func TestWriteMonitorScript(t *testing.T) {
	cfg := testSettings()
	plan := testPlan(t, 2, 4, queue.StrategyParallel)

	var buf bytes.Buffer
	if err := WriteMonitorScript(&buf, cfg, plan, "/work"); err != nil {
		t.Fatalf("WriteMonitorScript: %v", err)
	}
	body := buf.String()

	if !strings.Contains(body, "CHECK_INTERVAL=60") {
		t.Errorf("monitor interval not applied")
	}
	if !strings.Contains(body, "CFX_Job_2180") || !strings.Contains(body, "CFX_Job_2181") {
		t.Errorf("monitor script missing job names")
	}
	if !strings.Contains(body, "squeue") {
		t.Errorf("monitor script must poll squeue for SLURM")
	}
}

func TestFormatMemory(t *testing.T) {
	tests := []struct {
		memMB int64
		pbs   bool
		want  string
	}{
		{65536, false, "64G"},
		{65536, true, "64gb"},
		{512, false, "512M"},
		{512, true, "512mb"},
		{0, false, "64G"},
	}
	for _, tt := range tests {
		if got := formatMemory(tt.memMB, tt.pbs); got != tt.want {
			t.Errorf("formatMemory(%d, %v) = %q, want %q", tt.memMB, tt.pbs, got, tt.want)
		}
	}
}
