package scripts

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
)

// WritePBSScript writes a qsub script for one job. The nodes spec from the
// allocator goes straight into the -l nodes= resource request so PBS pins
// the job to the chosen hosts.
func WritePBSScript(out io.Writer, cfg *config.Settings, job *JobSpec) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "#!/bin/bash\n")
	fmt.Fprintf(w, "#PBS -N %s\n", job.Name)
	fmt.Fprintf(w, "#PBS -o %s.out\n", job.Name)
	fmt.Fprintf(w, "#PBS -e %s.err\n", job.Name)
	if cfg.Partition != "" {
		fmt.Fprintf(w, "#PBS -q %s\n", cfg.Partition)
	}
	fmt.Fprintf(w, "#PBS -l nodes=%s\n", pbsNodesResource(cfg, job))
	fmt.Fprintf(w, "#PBS -l walltime=%s\n", pbsWalltime(cfg.TimeLimit))
	fmt.Fprintf(w, "#PBS -l mem=%s\n", formatMemory(job.MemoryMB, true))
	fmt.Fprintf(w, "\n")

	writeJobBody(w, cfg, job, "$PBS_O_WORKDIR")
	return w.Flush()
}

// pbsWalltime renders HH:MM:SS with hours running past 24; PBS does not
// accept the D-HH:MM:SS form SLURM uses.
func pbsWalltime(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// pbsNodesResource prefers the allocator's nodes spec; without one it falls
// back to an anonymous count:ppn request.
func pbsNodesResource(cfg *config.Settings, job *JobSpec) string {
	if job.NodesSpec != "" {
		return job.NodesSpec
	}
	nodes := job.Nodes
	if nodes < 1 {
		nodes = 1
	}
	return fmt.Sprintf("%d:ppn=%d", nodes, tasksPerNode(cfg, job, nodes))
}
