package scripts

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// WriteSLURMScript writes an sbatch script for one job. Output always uses
// LF line endings; the script runs on the cluster, never locally.
func WriteSLURMScript(out io.Writer, cfg *config.Settings, job *JobSpec) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "#!/bin/bash\n")
	fmt.Fprintf(w, "#SBATCH --job-name=%s\n", job.Name)
	fmt.Fprintf(w, "#SBATCH --output=%s.out\n", job.Name)
	fmt.Fprintf(w, "#SBATCH --error=%s.err\n", job.Name)
	if cfg.Partition != "" {
		fmt.Fprintf(w, "#SBATCH --partition=%s\n", cfg.Partition)
	}
	nodes := job.Nodes
	if nodes < 1 {
		nodes = 1
	}
	fmt.Fprintf(w, "#SBATCH --nodes=%d\n", nodes)
	fmt.Fprintf(w, "#SBATCH --ntasks-per-node=%d\n", tasksPerNode(cfg, job, nodes))
	fmt.Fprintf(w, "#SBATCH --time=%s\n", utils.FormatWalltime(cfg.TimeLimit))
	fmt.Fprintf(w, "#SBATCH --mem=%s\n", formatMemory(job.MemoryMB, false))
	if len(job.Nodelist) > 0 {
		fmt.Fprintf(w, "#SBATCH --nodelist=%s\n", strings.Join(job.Nodelist, ","))
	}
	fmt.Fprintf(w, "\n")

	writeJobBody(w, cfg, job, "$SLURM_SUBMIT_DIR")
	return w.Flush()
}

func tasksPerNode(cfg *config.Settings, job *JobSpec, nodes int) int {
	if job.Cores > 0 && nodes > 0 {
		per := job.Cores / nodes
		if per > 0 {
			return per
		}
	}
	return cfg.TasksPerNode
}

// writeJobBody emits the scheduler-independent part of a job script: CFX
// environment setup followed by the solver invocation.
func writeJobBody(w *bufio.Writer, cfg *config.Settings, job *JobSpec, submitDirVar string) {
	fmt.Fprintf(w, "set -e\n")
	fmt.Fprintf(w, "cd %s\n\n", submitDirVar)

	if cfg.CfxHome != "" {
		fmt.Fprintf(w, "export PATH=%s/bin:$PATH\n\n", cfg.CfxHome)
	}

	fmt.Fprintf(w, "echo \"Job %s started on $(hostname) at $(date)\"\n\n", job.Name)

	fmt.Fprintf(w, "%s \\\n", solverPath(cfg))
	fmt.Fprintf(w, "    -batch \\\n")
	fmt.Fprintf(w, "    -def %s \\\n", job.DefFile)
	if cfg.InitialFile != "" {
		fmt.Fprintf(w, "    -ini-file %s \\\n", cfg.InitialFile)
	}
	if job.NodesSpec != "" && job.Nodes > 1 {
		fmt.Fprintf(w, "    -par-dist %s \\\n", job.NodesSpec)
		fmt.Fprintf(w, "    -start-method \"Platform MPI Distributed Parallel\"\n")
	} else {
		fmt.Fprintf(w, "    -part %d \\\n", solverPartitions(cfg, job))
		fmt.Fprintf(w, "    -start-method \"Platform MPI Local Parallel\"\n")
	}

	fmt.Fprintf(w, "\necho \"Job %s finished at $(date)\"\n", job.Name)
}

func solverPartitions(cfg *config.Settings, job *JobSpec) int {
	if job.Cores > 0 {
		return job.Cores
	}
	return cfg.TasksPerNode
}
