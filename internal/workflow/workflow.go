// Package workflow chains the end-to-end automation run: CFX case
// generation, cluster query, planning, transfer, submission and monitoring.
package workflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nu7hatch/gouuid"
	"github.com/sirupsen/logrus"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/allocate"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cfx"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/monitor"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/remote"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// Step names, in execution order.
const (
	StepConnect         = "connect"
	StepVerifyCFX       = "verify-cfx"
	StepGenerateCases   = "generate-cases"
	StepQueryCluster    = "query-cluster"
	StepGenerateScripts = "generate-scripts"
	StepUpload          = "upload"
	StepSubmit          = "submit"
	StepMonitor         = "monitor"
)

// AllSteps lists every step in run order.
var AllSteps = []string{
	StepConnect,
	StepVerifyCFX,
	StepGenerateCases,
	StepQueryCluster,
	StepGenerateScripts,
	StepUpload,
	StepSubmit,
	StepMonitor,
}

// StepStatus is the outcome of one workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepResult records one step's execution.
type StepResult struct {
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	Duration float64    `json:"duration_seconds"`
	Error    string     `json:"error,omitempty"`
}

// Workflow is one automation run with its accumulated state. Steps hand
// their products to later steps through the struct fields.
type Workflow struct {
	RunID   string
	DryRun  bool
	LogPath string

	cfg *config.Settings
	log *logrus.Logger

	// populated as the run progresses
	ssh       *remote.SSHClient
	runner    remote.Runner
	inst      *cfx.Installation
	nodes     []cluster.NodeResource
	plan      *queue.Plan
	mon       *monitor.Monitor
	jobsByTag map[string]string // tag -> scheduler job ID

	results []StepResult
	started time.Time
}

// New creates a workflow run with a fresh run ID and its own log file in
// the working directory.
func New(cfg *config.Settings) (*Workflow, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run ID: %w", err)
	}

	w := &Workflow{
		RunID:     id.String(),
		DryRun:    cfg.DryRun,
		cfg:       cfg,
		jobsByTag: make(map[string]string),
	}

	w.log = logrus.New()
	w.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	w.log.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		w.log.SetLevel(logrus.DebugLevel)
	}

	w.LogPath = filepath.Join(cfg.WorkDir, fmt.Sprintf("autoexsim_%s.log", shortID(w.RunID)))
	if f, err := os.OpenFile(w.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, utils.PermFile); err == nil {
		w.log.SetOutput(f)
	} else {
		utils.PrintWarning("Cannot open run log %s: %v", w.LogPath, err)
		w.log.SetOutput(io.Discard)
	}

	w.log.WithFields(logrus.Fields{
		"run_id":    w.RunID,
		"version":   config.VERSION,
		"scheduler": cfg.Scheduler,
		"dry_run":   w.DryRun,
	}).Info("workflow run created")

	return w, nil
}

// shortID returns the first UUID group, enough to keep filenames readable.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// Log exposes the run logger for command-level annotations.
func (w *Workflow) Log() *logrus.Logger {
	return w.log
}

// Plan returns the queue plan once generate-scripts has produced it.
func (w *Workflow) Plan() *queue.Plan {
	return w.plan
}

// jobRequirements expands the configured pressure list into allocation
// requests, one job per case tagged with the formatted pressure.
func (w *Workflow) jobRequirements() []allocate.JobRequirement {
	jobs := make([]allocate.JobRequirement, 0, len(w.cfg.Pressures))
	for _, p := range w.cfg.Pressures {
		jobs = append(jobs, allocate.JobRequirement{
			ID:       utils.FormatPressure(p),
			Cores:    w.cfg.Nodes * w.cfg.TasksPerNode,
			MemoryMB: w.cfg.MemPerNodeMB,
			Nodes:    w.cfg.Nodes,
		})
	}
	return jobs
}

// remoteDir returns the remote working directory in a form SFTP accepts:
// a leading ~/ becomes a home-relative path.
func (w *Workflow) remoteDir() string {
	dir := w.cfg.RemoteDir
	if strings.HasPrefix(dir, "~/") {
		return dir[2:]
	}
	return dir
}

// remoteCasePath joins the remote working directory with a case-relative
// path using forward slashes.
func (w *Workflow) remoteCasePath(parts ...string) string {
	all := append([]string{w.remoteDir()}, parts...)
	return strings.Join(all, "/")
}
