package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cfx"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/monitor"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/remote"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/scripts"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// Run executes the named steps in canonical order. An empty list runs every
// step. Execution stops at the first failing step; the report covers what
// ran.
func (w *Workflow) Run(ctx context.Context, steps []string) (*RunReport, error) {
	selected, err := selectSteps(steps)
	if err != nil {
		return nil, err
	}

	w.started = time.Now()
	defer w.cleanup()

	var runErr error
	for _, name := range AllSteps {
		if !selected[name] {
			continue
		}

		utils.PrintMessage("Step %s", utils.StyleAction(name))
		w.log.WithField("step", name).Info("step started")

		start := time.Now()
		err := w.runStep(ctx, name)
		result := StepResult{
			Name:     name,
			Status:   StepCompleted,
			Duration: time.Since(start).Seconds(),
		}

		if err != nil {
			result.Status = StepFailed
			result.Error = err.Error()
			w.log.WithFields(logrus.Fields{"step": name, "error": err}).Error("step failed")
			utils.PrintError("Step %s failed: %v", name, err)
			runErr = fmt.Errorf("step %s: %w", name, err)
		} else {
			w.log.WithFields(logrus.Fields{
				"step":     name,
				"duration": result.Duration,
			}).Info("step completed")
			utils.PrintSuccess("Step %s completed in %.1fs", name, result.Duration)
		}

		w.results = append(w.results, result)
		if runErr != nil {
			break
		}
	}

	report := w.buildReport(runErr)
	if path, err := report.Save(w.cfg.WorkDir); err == nil {
		utils.PrintMessage("Run report written to %s", utils.StylePath(path))
	} else {
		utils.PrintWarning("Cannot save run report: %v", err)
	}
	return report, runErr
}

// selectSteps validates the requested subset and returns the set to run.
func selectSteps(steps []string) (map[string]bool, error) {
	known := make(map[string]bool, len(AllSteps))
	for _, s := range AllSteps {
		known[s] = true
	}

	selected := make(map[string]bool, len(AllSteps))
	if len(steps) == 0 {
		for _, s := range AllSteps {
			selected[s] = true
		}
		return selected, nil
	}

	for _, s := range steps {
		s = strings.TrimSpace(s)
		if !known[s] {
			return nil, fmt.Errorf("unknown step %q (valid: %s)", s, strings.Join(AllSteps, ", "))
		}
		selected[s] = true
	}
	return selected, nil
}

func (w *Workflow) runStep(ctx context.Context, name string) error {
	switch name {
	case StepConnect:
		return w.stepConnect(ctx)
	case StepVerifyCFX:
		return w.stepVerifyCFX(ctx)
	case StepGenerateCases:
		return w.stepGenerateCases(ctx)
	case StepQueryCluster:
		return w.stepQueryCluster(ctx)
	case StepGenerateScripts:
		return w.stepGenerateScripts(ctx)
	case StepUpload:
		return w.stepUpload(ctx)
	case StepSubmit:
		return w.stepSubmit(ctx)
	case StepMonitor:
		return w.stepMonitor(ctx)
	}
	return fmt.Errorf("unknown step %q", name)
}

// cleanup closes the SSH connection at the end of a run.
func (w *Workflow) cleanup() {
	if w.ssh != nil {
		_ = w.ssh.Close()
		w.ssh = nil
	}
}

// stepConnect establishes the SSH connection used by every remote step. In
// dry-run mode, or with no host configured, remote commands run locally —
// the tool may be running on a login node already.
func (w *Workflow) stepConnect(ctx context.Context) error {
	if w.cfg.SSHHost == "" {
		utils.PrintNote("No SSH host configured; running commands locally")
		w.runner = remote.NewLocalRunner()
		return nil
	}

	w.ssh = remote.NewSSHClient(w.cfg)
	if err := w.ssh.Connect(ctx); err != nil {
		return err
	}
	w.runner = w.ssh

	w.log.WithFields(logrus.Fields{
		"host": w.cfg.SSHHost,
		"user": w.cfg.SSHUser,
	}).Info("connected")
	return nil
}

// stepVerifyCFX locates the local CFX installation and checks its release.
func (w *Workflow) stepVerifyCFX(ctx context.Context) error {
	var inst *cfx.Installation
	var err error

	if w.cfg.CfxHome != "" {
		inst = cfx.FromHome(w.cfg.CfxHome)
	} else {
		inst, err = cfx.Detect()
		if err != nil {
			return err
		}
	}

	if version, err := inst.QueryVersion(ctx); err == nil {
		if !cfx.IsSupported(version) {
			utils.PrintWarning("CFX %s is older than the supported minimum %s", version, cfx.MinVersion)
		}
		w.log.WithField("cfx_version", version).Info("CFX verified")
	} else {
		utils.PrintWarning("Cannot determine CFX version: %v", err)
	}

	utils.PrintMessage("CFX found at %s (%s)", utils.StylePath(inst.Home), inst.Method)
	w.inst = inst
	return nil
}

// stepGenerateCases runs CFX-Pre to produce the per-pressure def files. In
// dry-run mode only the session file is written.
func (w *Workflow) stepGenerateCases(ctx context.Context) error {
	if w.inst == nil {
		if err := w.stepVerifyCFX(ctx); err != nil {
			return err
		}
	}

	if w.DryRun {
		path, err := cfx.WriteSession(w.cfg, w.cfg.WorkDir)
		if err != nil {
			return err
		}
		utils.PrintNote("Dry run: session written to %s, cfx5pre not executed", path)
		return nil
	}

	defFiles, err := cfx.GenerateCases(ctx, w.inst, w.cfg, w.cfg.WorkDir)
	if err != nil {
		return err
	}
	w.log.WithField("def_files", len(defFiles)).Info("cases generated")
	return nil
}

// stepQueryCluster fetches node resources from the scheduler.
func (w *Workflow) stepQueryCluster(ctx context.Context) error {
	if w.runner == nil {
		if err := w.stepConnect(ctx); err != nil {
			return err
		}
	}

	kind := cluster.SchedulerKind(w.cfg.Scheduler)
	client := cluster.NewClient(w.runner, kind)

	nodes, err := client.QueryNodes(ctx)
	if err != nil {
		return err
	}
	w.nodes = nodes

	summary := cluster.Summarize(nodes)
	utils.PrintMessage("Cluster: %d nodes, %d free, %d cores available",
		summary.TotalNodes, summary.FreeNodes, summary.AvailableCores)
	w.log.WithFields(logrus.Fields{
		"nodes":           summary.TotalNodes,
		"free":            summary.FreeNodes,
		"available_cores": summary.AvailableCores,
	}).Info("cluster queried")
	return nil
}

// stepGenerateScripts builds the queue plan and writes job plus helper
// scripts.
func (w *Workflow) stepGenerateScripts(ctx context.Context) error {
	if w.nodes == nil {
		if err := w.stepQueryCluster(ctx); err != nil {
			return err
		}
	}

	jobs := w.jobRequirements()
	free := len(cluster.FilterAvailable(w.nodes, 0, 0, ""))

	strategy, err := queue.SelectStrategy(len(jobs), free, queue.StrategyConfig{
		Forced:            w.cfg.QueueStrategy,
		JobCountThreshold: w.cfg.JobThreshold,
	})
	if err != nil {
		return err
	}
	utils.PrintMessage("Queue strategy: %s (%d jobs, %d free nodes)",
		utils.StyleHighlight(string(strategy)), len(jobs), free)

	opts := queue.DefaultPlanOptions()
	opts.Allocate.ReuseResidual = w.cfg.ReuseResidual
	plan, err := queue.BuildPlan(jobs, w.nodes, strategy, opts)
	if err != nil {
		return err
	}
	w.plan = plan

	for _, uj := range plan.Unallocated {
		utils.PrintWarning("Job %s not allocated: %s", uj.Job.ID, uj.Reason)
		w.log.WithFields(logrus.Fields{
			"job":    uj.Job.ID,
			"reason": uj.Reason.String(),
		}).Warn("job not allocated")
	}

	if w.cfg.Debug {
		w.log.Debug(spew.Sdump(plan))
	}

	paths, err := scripts.GenerateJobScripts(w.cfg, plan, w.cfg.WorkDir)
	if err != nil {
		return err
	}
	helpers, err := scripts.GenerateHelperScripts(w.cfg, plan, w.cfg.WorkDir)
	if err != nil {
		return err
	}

	utils.PrintSuccess("Wrote %d job script(s) and %d helper script(s)",
		len(paths), len(helpers))
	w.log.WithFields(logrus.Fields{
		"strategy": string(strategy),
		"batches":  len(plan.Batches),
		"scripts":  len(paths),
	}).Info("scripts generated")
	return nil
}

// stepUpload pushes the case directories and helper scripts to the cluster.
func (w *Workflow) stepUpload(ctx context.Context) error {
	if w.DryRun {
		utils.PrintNote("Dry run: skipping upload")
		return nil
	}
	if w.ssh == nil {
		return remote.ErrNotConnected
	}

	transfer, err := remote.NewTransfer(w.ssh, w.cfg.TransferRetries, w.cfg.VerifyChecksums)
	if err != nil {
		return err
	}
	defer transfer.Close()

	if err := transfer.MkdirAll(w.remoteDir()); err != nil {
		return err
	}
	if err := transfer.UploadDir(w.cfg.WorkDir, w.remoteDir()); err != nil {
		return err
	}

	remote.Stats.PrintSummary()
	w.log.WithField("summary", remote.Stats.Summary()).Info("upload finished")
	return nil
}

// stepSubmit launches the plan's first batch. Later batches are submitted
// by the monitor step as earlier ones drain.
func (w *Workflow) stepSubmit(ctx context.Context) error {
	if w.plan == nil {
		return fmt.Errorf("no queue plan; run the %s step first", StepGenerateScripts)
	}
	if w.DryRun {
		utils.PrintNote("Dry run: skipping submission of %d batch(es)", len(w.plan.Batches))
		return nil
	}
	if w.runner == nil {
		return remote.ErrNotConnected
	}

	w.mon = monitor.New(w.runner, w.cfg.Scheduler, w.cfg.MonitorInterval)

	w.plan.Start()
	batch, ok := w.plan.CurrentBatch()
	if !ok {
		utils.PrintWarning("Plan holds no batches; nothing to submit")
		return nil
	}
	return w.submitBatch(ctx, batch)
}

// submitBatch submits every job of one batch and registers it with the
// monitor.
func (w *Workflow) submitBatch(ctx context.Context, batch *queue.Batch) error {
	specs := scripts.JobsFromPlan(w.cfg, w.plan, w.cfg.WorkDir)

	for i := range specs {
		spec := &specs[i]
		if spec.BatchIndex != batch.Index {
			continue
		}

		jobID, err := w.submitJob(ctx, spec)
		if err != nil {
			return err
		}
		w.jobsByTag[spec.Tag] = jobID
		w.mon.Track(jobID, spec.Name, batch.Index)

		utils.PrintSuccess("Submitted %s as job %s", spec.Name, jobID)
		w.log.WithFields(logrus.Fields{
			"job":   spec.Name,
			"id":    jobID,
			"batch": batch.Index,
		}).Info("job submitted")
	}
	return nil
}

// submitJob runs sbatch/qsub in the job's remote case directory and parses
// the scheduler's job ID from the output.
func (w *Workflow) submitJob(ctx context.Context, spec *scripts.JobSpec) (string, error) {
	script := spec.ScriptFilename(w.cfg.Scheduler)
	caseDir := w.remoteCasePath(w.cfg.FolderPrefix + spec.Tag)

	submitCmd := "sbatch"
	if w.cfg.Scheduler == "PBS" {
		submitCmd = "qsub"
	}
	cmd := fmt.Sprintf("cd %q && %s %q", caseDir, submitCmd, script)

	stdout, stderr, code, err := w.runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("%s exited %d: %s", submitCmd, code, strings.TrimSpace(stderr))
	}

	jobID := parseJobID(stdout)
	if jobID == "" {
		return "", fmt.Errorf("no job ID in %s output: %q", submitCmd, strings.TrimSpace(stdout))
	}
	return jobID, nil
}

// parseJobID extracts the scheduler job ID from submission output. sbatch
// prints "Submitted batch job <id>"; qsub prints the bare ID.
func parseJobID(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}
	fields := strings.Fields(output)
	return fields[len(fields)-1]
}

// stepMonitor watches the submitted jobs, advancing the plan and submitting
// follow-on batches until everything is terminal.
func (w *Workflow) stepMonitor(ctx context.Context) error {
	if w.DryRun {
		utils.PrintNote("Dry run: skipping monitoring")
		return nil
	}
	if w.mon == nil || w.plan == nil {
		return fmt.Errorf("nothing submitted; run the %s step first", StepSubmit)
	}

	onBatchDone := func(done *queue.Batch, next *queue.Batch) error {
		w.log.WithField("batch", done.Index).Info("batch completed")
		if next == nil {
			return nil
		}
		return w.submitBatch(ctx, next)
	}

	report, err := w.mon.Watch(ctx, w.plan, onBatchDone)
	if err != nil {
		return err
	}

	if path, serr := report.Save(w.cfg.WorkDir); serr == nil {
		utils.PrintMessage("Monitoring report written to %s", utils.StylePath(path))
	} else {
		utils.PrintWarning("Cannot save monitoring report: %v", serr)
	}

	if w.cfg.DownloadResults && w.ssh != nil {
		if derr := w.downloadResults(); derr != nil {
			utils.PrintWarning("Result download failed: %v", derr)
		}
	}

	utils.PrintSuccess("Monitoring finished: %d/%d job(s) completed",
		report.Summary.Completed, report.Summary.TotalJobs)
	return nil
}

// downloadResults pulls solver outputs of completed jobs back into the
// local case directories.
func (w *Workflow) downloadResults() error {
	transfer, err := remote.NewTransfer(w.ssh, w.cfg.TransferRetries, w.cfg.VerifyChecksums)
	if err != nil {
		return err
	}
	defer transfer.Close()

	for _, job := range w.mon.Jobs() {
		if job.State != monitor.StateCompleted {
			continue
		}

		tag := tagForJob(w.jobsByTag, job.ID)
		if tag == "" {
			continue
		}

		pattern := w.remoteCasePath(w.cfg.FolderPrefix+tag, "*.res")
		matches, err := transfer.Glob(pattern)
		if err != nil {
			return err
		}
		for _, m := range matches {
			local := filepath.Join(w.cfg.WorkDir, w.cfg.FolderPrefix+tag, filepath.Base(m))
			if err := transfer.DownloadFile(m, local); err != nil {
				return err
			}
		}
	}

	remote.Stats.PrintSummary()
	return nil
}

// tagForJob reverses the tag -> job ID map.
func tagForJob(byTag map[string]string, jobID string) string {
	for tag, id := range byTag {
		if id == jobID {
			return tag
		}
	}
	return ""
}
