package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (AUTOEXSIM_*)
// 3. User config file (~/.config/autoexsim/config.yaml)
// 4. System config file (/etc/autoexsim/config.yaml)
// 5. Defaults
func InitViper() error {
	viper.SetConfigName(ConfigFilename)
	viper.SetConfigType(ConfigType)

	// Set config search paths (order matters)
	// User config (highest priority)
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(userConfigDir, "autoexsim"))
	}

	// Home directory fallback
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".autoexsim"))
	}

	// System-wide config (lower priority)
	viper.AddConfigPath("/etc/autoexsim")

	// Current directory (for per-project configs)
	viper.AddConfigPath(".")

	// Environment variables: ssh.password -> AUTOEXSIM_SSH_PASSWORD
	viper.SetEnvPrefix("AUTOEXSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults (lowest priority)
	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; built-in defaults apply
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for all config keys
func setDefaults() {
	viper.SetDefault("cfx.home", "")
	viper.SetDefault("cfx.base_model", "")
	viper.SetDefault("cfx.pressures", []string{"2187", "2189"})
	viper.SetDefault("cfx.flow_analysis", "Flow Analysis 1")
	viper.SetDefault("cfx.domain", "S1")
	viper.SetDefault("cfx.outlet_boundary", "S1 Outlet")
	viper.SetDefault("cfx.outlet_location", "R2_OUTFLOW")
	viper.SetDefault("cfx.pressure_blend", "0.05")
	viper.SetDefault("cfx.initial_file", "INI.res")
	viper.SetDefault("cfx.folder_prefix", "P_Out_")
	viper.SetDefault("cfx.def_prefix", "P_Out_")
	viper.SetDefault("cfx.work_dir", ".")

	viper.SetDefault("job.scheduler", "SLURM")
	viper.SetDefault("job.name", "CFX_Job")
	viper.SetDefault("job.partition", "cpu-low")
	viper.SetDefault("job.nodes", 1)
	viper.SetDefault("job.tasks_per_node", 32)
	viper.SetDefault("job.mem_per_node", "64GB")
	viper.SetDefault("job.time_limit", "7-00:00:00")
	viper.SetDefault("job.queue_strategy", "")
	viper.SetDefault("job.count_threshold", 8)
	viper.SetDefault("job.reuse_residual", true)

	viper.SetDefault("ssh.host", "")
	viper.SetDefault("ssh.port", 22)
	viper.SetDefault("ssh.user", "")
	viper.SetDefault("ssh.key_file", "")
	viper.SetDefault("ssh.password", "") // prefer AUTOEXSIM_SSH_PASSWORD over the file
	viper.SetDefault("ssh.remote_dir", "~/cfx_jobs")
	viper.SetDefault("transfer.retries", 3)
	viper.SetDefault("transfer.verify_checksums", true)

	viper.SetDefault("monitor.interval", "60s")
	viper.SetDefault("monitor.download_results", true)
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".autoexsim", ConfigFilename+"."+ConfigType), nil
	}

	return filepath.Join(userConfigDir, "autoexsim", ConfigFilename+"."+ConfigType), nil
}

// SaveConfig saves current Viper config to user config file
func SaveConfig() error {
	configPath, err := GetUserConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Create directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateBinary checks if a binary exists and is executable
func ValidateBinary(binPath string) bool {
	if binPath == "" {
		return false
	}

	// If it's a full path, check directly
	if filepath.IsAbs(binPath) {
		info, err := os.Stat(binPath)
		if err != nil {
			return false
		}
		// Check if it's executable (unix-style check)
		return info.Mode()&0111 != 0
	}

	// Otherwise, try to find it in PATH
	_, err := exec.LookPath(binPath)
	return err == nil
}

// DetectSchedulerBin attempts to find a scheduler submit binary on the local
// machine. Returns (binary_path, scheduler_type) if found.
func DetectSchedulerBin() (string, string) {
	// Try SLURM first (most common in HPC)
	if path, err := exec.LookPath("sbatch"); err == nil {
		return path, "SLURM"
	}

	// Try PBS/Torque
	if path, err := exec.LookPath("qsub"); err == nil {
		return path, "PBS"
	}

	return "", ""
}

// LoadFromViper loads config from Viper into the Global struct
func LoadFromViper() {
	if v := viper.GetString("cfx.home"); v != "" {
		Global.CfxHome = v
	}
	if v := viper.GetString("cfx.base_model"); v != "" {
		Global.BaseModel = v
	}
	if v := viper.GetStringSlice("cfx.pressures"); len(v) > 0 {
		pressures := make([]float64, 0, len(v))
		for _, s := range v {
			var p float64
			if _, err := fmt.Sscanf(s, "%g", &p); err == nil {
				pressures = append(pressures, p)
			}
		}
		if len(pressures) > 0 {
			Global.Pressures = pressures
		}
	}
	if v := viper.GetString("cfx.flow_analysis"); v != "" {
		Global.FlowAnalysis = v
	}
	if v := viper.GetString("cfx.domain"); v != "" {
		Global.Domain = v
	}
	if v := viper.GetString("cfx.outlet_boundary"); v != "" {
		Global.OutletBoundary = v
	}
	if v := viper.GetString("cfx.outlet_location"); v != "" {
		Global.OutletLocation = v
	}
	if v := viper.GetString("cfx.pressure_blend"); v != "" {
		Global.PressureBlend = v
	}
	if v := viper.GetString("cfx.initial_file"); v != "" {
		Global.InitialFile = v
	}
	if v := viper.GetString("cfx.folder_prefix"); v != "" {
		Global.FolderPrefix = v
	}
	if v := viper.GetString("cfx.def_prefix"); v != "" {
		Global.DefFilePrefix = v
	}
	if v := viper.GetString("cfx.work_dir"); v != "" {
		Global.WorkDir = v
	}

	if v := viper.GetString("job.scheduler"); v != "" {
		Global.Scheduler = v
	}
	if v := viper.GetString("job.name"); v != "" {
		Global.JobName = v
	}
	if v := viper.GetString("job.partition"); v != "" {
		Global.Partition = v
	}
	if v := viper.GetInt("job.nodes"); v > 0 {
		Global.Nodes = v
	}
	if v := viper.GetInt("job.tasks_per_node"); v > 0 {
		Global.TasksPerNode = v
	}
	if v := viper.GetString("job.mem_per_node"); v != "" {
		if mb, err := utils.ParseSizeToMB(v); err == nil {
			Global.MemPerNodeMB = mb
		}
	}
	if v := viper.GetString("job.time_limit"); v != "" {
		if dur, err := utils.ParseDuration(v); err == nil {
			Global.TimeLimit = dur
		}
	}
	Global.QueueStrategy = viper.GetString("job.queue_strategy")
	if v := viper.GetInt("job.count_threshold"); v > 0 {
		Global.JobThreshold = v
	}
	Global.ReuseResidual = viper.GetBool("job.reuse_residual")

	if v := viper.GetString("ssh.host"); v != "" {
		Global.SSHHost = v
	}
	if v := viper.GetInt("ssh.port"); v > 0 {
		Global.SSHPort = v
	}
	if v := viper.GetString("ssh.user"); v != "" {
		Global.SSHUser = v
	}
	if v := viper.GetString("ssh.key_file"); v != "" {
		Global.SSHKeyFile = v
	}
	if v := viper.GetString("ssh.password"); v != "" {
		Global.SSHPassword = v
	}
	if v := viper.GetString("ssh.remote_dir"); v != "" {
		Global.RemoteDir = v
	}
	if v := viper.GetInt("transfer.retries"); v > 0 {
		Global.TransferRetries = v
	}
	Global.VerifyChecksums = viper.GetBool("transfer.verify_checksums")

	if v := viper.GetString("monitor.interval"); v != "" {
		if dur, err := utils.ParseDuration(v); err == nil {
			Global.MonitorInterval = dur
		}
	}
	Global.DownloadResults = viper.GetBool("monitor.download_results")
}
