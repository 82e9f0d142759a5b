package scripts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// GenerateJobScripts writes one scheduler script per planned job into its
// case directory and returns the script paths in plan order.
func GenerateJobScripts(cfg *config.Settings, plan *queue.Plan, workDir string) ([]string, error) {
	jobs := JobsFromPlan(cfg, plan, workDir)
	paths := make([]string, 0, len(jobs))

	for i := range jobs {
		job := &jobs[i]
		if err := utils.EnsureDir(job.CaseDir); err != nil {
			return paths, fmt.Errorf("failed to create case directory: %w", err)
		}

		path := filepath.Join(job.CaseDir, job.ScriptFilename(cfg.Scheduler))
		if err := writeScript(path, func(w io.Writer) error {
			switch cfg.Scheduler {
			case "PBS":
				return WritePBSScript(w, cfg, job)
			default:
				return WriteSLURMScript(w, cfg, job)
			}
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		utils.PrintDebug("Wrote job script %s", path)
	}
	return paths, nil
}

// GenerateHelperScripts writes Submit_All.sh and Monitor_Jobs.sh into the
// working directory and returns their paths.
func GenerateHelperScripts(cfg *config.Settings, plan *queue.Plan, workDir string) ([]string, error) {
	submit := filepath.Join(workDir, SubmitScriptName)
	if err := writeScript(submit, func(w io.Writer) error {
		return WriteSubmitScript(w, cfg, plan, workDir)
	}); err != nil {
		return nil, err
	}

	monitor := filepath.Join(workDir, MonitorScriptName)
	if err := writeScript(monitor, func(w io.Writer) error {
		return WriteMonitorScript(w, cfg, plan, workDir)
	}); err != nil {
		return []string{submit}, err
	}

	return []string{submit, monitor}, nil
}

// writeScript creates path with execute permission and runs the body writer.
func writeScript(path string, body func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, utils.PermExec)
	if err != nil {
		return fmt.Errorf("failed to create script %s: %w", path, err)
	}
	defer f.Close()

	if err := body(f); err != nil {
		return fmt.Errorf("failed to write script %s: %w", path, err)
	}
	return nil
}

// WriteSubmitScript emits Submit_All.sh: submit every job script batch by
// batch, record job ids in job_ids.txt, and between batches wait until the
// previous batch has drained from the queue.
func WriteSubmitScript(out io.Writer, cfg *config.Settings, plan *queue.Plan, workDir string) error {
	w := bufio.NewWriter(out)
	submitCmd, checkCmd := schedulerCommands(cfg.Scheduler)

	fmt.Fprintf(w, "#!/bin/bash\n")
	fmt.Fprintf(w, "# Batch submission helper (%s strategy, %d batch(es), %d job(s))\n",
		plan.Strategy, len(plan.Batches), plan.JobCount())
	fmt.Fprintf(w, "set -e\n")
	fmt.Fprintf(w, "cd \"$(dirname \"$0\")\"\n\n")
	fmt.Fprintf(w, ": > %s\n\n", JobIDsFilename)

	for _, batch := range plan.Batches {
		jobs := make([]JobSpec, 0, len(batch.Jobs))
		for _, pj := range batch.Jobs {
			jobs = append(jobs, jobFromPlanned(cfg, pj, workDir, batch.Index))
		}

		fmt.Fprintf(w, "echo \"Submitting batch %d (%d job(s))\"\n", batch.Index+1, len(jobs))
		fmt.Fprintf(w, "BATCH_IDS=\"\"\n")
		for i := range jobs {
			job := &jobs[i]
			rel := filepath.Join(cfg.FolderPrefix+job.Tag, job.ScriptFilename(cfg.Scheduler))
			fmt.Fprintf(w, "echo \"  %s\"\n", rel)
			if cfg.Scheduler == "PBS" {
				fmt.Fprintf(w, "JOB_ID=$(cd %s && %s %s)\n",
					filepath.Dir(rel), submitCmd, filepath.Base(rel))
			} else {
				// sbatch prints "Submitted batch job <id>"
				fmt.Fprintf(w, "JOB_ID=$(%s %s | awk '{print $NF}')\n", submitCmd, rel)
			}
			fmt.Fprintf(w, "echo \"$JOB_ID %s\" >> %s\n", job.Name, JobIDsFilename)
			fmt.Fprintf(w, "BATCH_IDS=\"$BATCH_IDS $JOB_ID\"\n")
		}

		// All but the last batch block until their jobs leave the queue
		if batch.Index < len(plan.Batches)-1 {
			fmt.Fprintf(w, "echo \"Waiting for batch %d to finish\"\n", batch.Index+1)
			fmt.Fprintf(w, "for job_id in $BATCH_IDS; do\n")
			fmt.Fprintf(w, "    while %s $job_id &>/dev/null; do sleep 30; done\n", checkCmd)
			fmt.Fprintf(w, "done\n")
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "echo \"All jobs submitted; ids recorded in %s\"\n", JobIDsFilename)
	return w.Flush()
}

// WriteMonitorScript emits Monitor_Jobs.sh: poll the queue by job name until
// every submitted job has left it.
func WriteMonitorScript(out io.Writer, cfg *config.Settings, plan *queue.Plan, workDir string) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "#!/bin/bash\n")
	fmt.Fprintf(w, "# Queue monitoring helper\n\n")
	fmt.Fprintf(w, "CHECK_INTERVAL=%d\n\n", int(cfg.MonitorInterval.Seconds()))

	fmt.Fprintf(w, "JOBS=(")
	for _, job := range JobsFromPlan(cfg, plan, workDir) {
		fmt.Fprintf(w, " %s", job.Name)
	}
	fmt.Fprintf(w, " )\n\n")

	var nameCheck string
	if cfg.Scheduler == "PBS" {
		nameCheck = "qstat | grep -q \"$job\""
	} else {
		nameCheck = "squeue -h -n \"$job\" | grep -q ."
	}

	fmt.Fprintf(w, "echo \"Monitoring ${#JOBS[@]} job(s)\"\n")
	fmt.Fprintf(w, "while true; do\n")
	fmt.Fprintf(w, "    running=0\n")
	fmt.Fprintf(w, "    for job in \"${JOBS[@]}\"; do\n")
	fmt.Fprintf(w, "        if %s; then\n", nameCheck)
	fmt.Fprintf(w, "            running=$((running + 1))\n")
	fmt.Fprintf(w, "        fi\n")
	fmt.Fprintf(w, "    done\n")
	fmt.Fprintf(w, "    if [ $running -eq 0 ]; then\n")
	fmt.Fprintf(w, "        echo \"All jobs finished\"\n")
	fmt.Fprintf(w, "        break\n")
	fmt.Fprintf(w, "    fi\n")
	fmt.Fprintf(w, "    echo \"$(date): $running job(s) still in queue\"\n")
	fmt.Fprintf(w, "    sleep $CHECK_INTERVAL\n")
	fmt.Fprintf(w, "done\n")
	return w.Flush()
}

// schedulerCommands returns the submit and queue-check commands for a
// scheduler type.
func schedulerCommands(scheduler string) (submit, check string) {
	if scheduler == "PBS" {
		return "qsub", "qstat"
	}
	return "sbatch", "squeue -j"
}
