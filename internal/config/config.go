// Package config holds the global settings for the CFX automation workflow.
package config

import (
	"fmt"
	"time"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

const VERSION = "1.2.0"

// Settings holds global application settings
type Settings struct {
	Debug  bool
	DryRun bool

	// CFX model
	CfxHome         string    // ANSYS CFX installation root (auto-detected if empty)
	BaseModel       string    // base .cfx model file
	Pressures       []float64 // outlet back-pressure list in Pa
	FlowAnalysis    string    // flow analysis name inside the model
	Domain          string    // domain carrying the outlet boundary
	OutletBoundary  string    // boundary whose static pressure is varied
	OutletLocation  string    // mesh location of the outlet
	PressureBlend   string    // pressure profile blend factor
	InitialFile     string    // initial values file (.res) for the solver
	FolderPrefix    string    // case directory prefix, e.g. P_Out_2187/
	DefFilePrefix   string    // def file prefix inside each case directory
	WorkDir         string    // local working directory for generated cases

	// Scheduler / job scripts
	Scheduler     string // SLURM or PBS
	JobName       string
	Partition     string // SLURM partition / PBS queue
	Nodes         int
	TasksPerNode  int
	MemPerNodeMB  int64
	TimeLimit     time.Duration
	QueueStrategy string // forced queue strategy; empty = auto
	JobThreshold  int    // job count above which batch mode kicks in
	ReuseResidual bool   // residual node capacity reuse within a batch

	// Remote cluster
	SSHHost         string
	SSHPort         int
	SSHUser         string
	SSHKeyFile      string
	SSHPassword     string
	RemoteDir       string
	TransferRetries int
	VerifyChecksums bool

	// Monitoring
	MonitorInterval time.Duration
	DownloadResults bool
}

// Global holds the singleton configuration instance
var Global Settings

// LoadDefaults fills Global with built-in defaults. Viper values and flags
// are layered on top afterwards.
func LoadDefaults() {
	Global = Settings{
		Debug:  false,
		DryRun: false,

		Pressures:      []float64{2187, 2189},
		FlowAnalysis:   "Flow Analysis 1",
		Domain:         "S1",
		OutletBoundary: "S1 Outlet",
		OutletLocation: "R2_OUTFLOW",
		PressureBlend:  "0.05",
		InitialFile:    "INI.res",
		FolderPrefix:   "P_Out_",
		DefFilePrefix:  "P_Out_",
		WorkDir:        ".",

		Scheduler:     "SLURM",
		JobName:       "CFX_Job",
		Partition:     "cpu-low",
		Nodes:         1,
		TasksPerNode:  32,
		MemPerNodeMB:  65536,
		TimeLimit:     7 * 24 * time.Hour,
		JobThreshold:  8,
		ReuseResidual: true,

		SSHPort:         22,
		RemoteDir:       "~/cfx_jobs",
		TransferRetries: 3,
		VerifyChecksums: true,

		MonitorInterval: 60 * time.Second,
		DownloadResults: true,
	}
}

// Validate collects all configuration problems instead of stopping at the
// first one, so a user fixes a config file in one pass.
func (s *Settings) Validate() []error {
	var errs []error

	if s.JobName == "" {
		errs = append(errs, fmt.Errorf("job_name must not be empty"))
	}
	if len(s.Pressures) == 0 {
		errs = append(errs, fmt.Errorf("pressures list must not be empty"))
	}
	if s.TasksPerNode <= 0 {
		errs = append(errs, fmt.Errorf("tasks_per_node must be positive, got %d", s.TasksPerNode))
	}
	if s.Nodes <= 0 {
		errs = append(errs, fmt.Errorf("nodes must be positive, got %d", s.Nodes))
	}
	if s.JobThreshold <= 0 {
		errs = append(errs, fmt.Errorf("job_count_threshold must be positive, got %d", s.JobThreshold))
	}
	if s.TimeLimit <= 0 {
		errs = append(errs, fmt.Errorf("time_limit must be positive"))
	}

	switch s.Scheduler {
	case "SLURM", "PBS":
	default:
		errs = append(errs, fmt.Errorf("scheduler must be SLURM or PBS, got %q", s.Scheduler))
	}

	if s.QueueStrategy != "" {
		switch s.QueueStrategy {
		case "parallel", "sequential", "batch":
		default:
			errs = append(errs, fmt.Errorf("queue_strategy must be parallel, sequential or batch, got %q", s.QueueStrategy))
		}
	}

	// An empty ssh.host means local mode: the tool runs on a login node and
	// talks to the scheduler directly.
	if s.SSHHost != "" && s.SSHUser == "" {
		errs = append(errs, fmt.Errorf("ssh.user must be set when ssh.host is configured"))
	}

	return errs
}

// PrintValidation reports validation results on the console and returns
// whether the settings are usable.
func (s *Settings) PrintValidation() bool {
	errs := s.Validate()
	if len(errs) == 0 {
		utils.PrintSuccess("Configuration is valid")
		return true
	}
	for _, err := range errs {
		utils.PrintError("%v", err)
	}
	return false
}
