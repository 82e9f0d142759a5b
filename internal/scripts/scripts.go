// Package scripts builds scheduler job scripts and the batch helper scripts
// that drive submission and monitoring on the cluster.
package scripts

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/allocate"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
)

// Helper script filenames written into the working directory.
const (
	SubmitScriptName  = "Submit_All.sh"
	MonitorScriptName = "Monitor_Jobs.sh"
	JobIDsFilename    = "job_ids.txt"
)

// JobSpec carries everything a job script needs for one case.
type JobSpec struct {
	Pressure   float64 // back pressure; 0 when the ID is not a pressure tag
	Tag        string  // case tag, usually the formatted pressure
	Name       string  // scheduler job name
	CaseDir    string  // local case directory holding the def file
	DefFile    string  // def filename relative to CaseDir
	Cores      int     // total cores across assigned nodes
	Nodes      int     // node count
	MemoryMB   int64
	Nodelist   []string // assigned node names, for SLURM --nodelist
	NodesSpec  string   // PBS nodes spec, e.g. n44:ppn=28+n45:ppn=16
	BatchIndex int      // plan batch the job belongs to
}

// ScriptFilename returns the job script name for the configured scheduler.
func (j *JobSpec) ScriptFilename(scheduler string) string {
	switch scheduler {
	case "SLURM":
		return j.Name + ".slurm"
	case "PBS":
		return j.Name + ".pbs"
	}
	return j.Name + ".sh"
}

// ResultFilename returns the solver result name CFX derives from the def
// file.
func (j *JobSpec) ResultFilename() string {
	base := strings.TrimSuffix(j.DefFile, filepath.Ext(j.DefFile))
	return base + "_001.res"
}

// JobsFromPlan expands a queue plan into job specs. Requirement IDs are the
// formatted pressure tags, so case paths and job names derive from them.
func JobsFromPlan(cfg *config.Settings, plan *queue.Plan, workDir string) []JobSpec {
	var specs []JobSpec
	for _, batch := range plan.Batches {
		for _, pj := range batch.Jobs {
			specs = append(specs, jobFromPlanned(cfg, pj, workDir, batch.Index))
		}
	}
	return specs
}

func jobFromPlanned(cfg *config.Settings, pj queue.PlannedJob, workDir string, batchIndex int) JobSpec {
	tag := pj.Job.ID
	spec := JobSpec{
		Tag:        tag,
		Name:       jobName(cfg.JobName, tag),
		CaseDir:    filepath.Join(workDir, cfg.FolderPrefix+tag),
		DefFile:    cfg.DefFilePrefix + tag + ".def",
		Cores:      pj.Allocation.TotalCores(),
		Nodes:      len(pj.Allocation.Nodes),
		MemoryMB:   pj.Job.MemoryMB,
		NodesSpec:  allocate.NodesSpecFromAllocation(&pj.Allocation),
		BatchIndex: batchIndex,
	}
	if p, err := strconv.ParseFloat(tag, 64); err == nil {
		spec.Pressure = p
	}
	for _, n := range pj.Allocation.Nodes {
		spec.Nodelist = append(spec.Nodelist, n.Name)
	}
	if spec.MemoryMB == 0 {
		spec.MemoryMB = cfg.MemPerNodeMB
	}
	return spec
}

// jobName joins the configured base name and the case tag, tolerating a
// trailing underscore in the base.
func jobName(base, tag string) string {
	if base == "" {
		base = "CFX_Job"
	}
	return strings.TrimRight(base, "_") + "_" + tag
}

// formatMemory renders a memory size for scheduler directives. SLURM takes
// "64G", PBS takes "64gb".
func formatMemory(memMB int64, pbs bool) string {
	if memMB <= 0 {
		memMB = 64 * 1024
	}
	if memMB < 1024 {
		if pbs {
			return fmt.Sprintf("%dmb", memMB)
		}
		return fmt.Sprintf("%dM", memMB)
	}
	gb := memMB / 1024
	if pbs {
		return fmt.Sprintf("%dgb", gb)
	}
	return fmt.Sprintf("%dG", gb)
}

// solverPath returns the cfx5solve path used on the cluster. An empty CFX
// home falls back to PATH lookup on the remote side.
func solverPath(cfg *config.Settings) string {
	if cfg.CfxHome == "" {
		return "cfx5solve"
	}
	return filepath.Join(cfg.CfxHome, "bin", "cfx5solve")
}
