package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var (
	configFile string
	debugMode  bool
	quietMode  bool
	dryRunMode bool
)

var rootCmd = &cobra.Command{
	Use:           "autoexsim",
	Short:         "AutoExSim: automate parameterized ANSYS CFX runs on SLURM/PBS clusters.",
	Version:       config.VERSION,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Step 1: Load built-in defaults
		config.LoadDefaults()

		// Step 2: Initialize Viper (config file, env vars)
		if configFile != "" {
			viper.SetConfigFile(configFile)
		}
		if err := config.InitViper(); err != nil {
			utils.PrintDebug("Error reading config file: %v", err)
		}

		// Step 3: Load file/env values into the Global config
		config.LoadFromViper()

		// Step 4: Apply command-line flags (highest priority)
		if debugMode {
			utils.DebugMode = true
			config.Global.Debug = true
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("AutoExSim Version: %s", utils.StyleInfo(config.VERSION))
			if used := viper.ConfigFileUsed(); used != "" {
				utils.PrintDebug("Config File: %s", used)
			}
			utils.PrintDebug("Scheduler: %s", config.Global.Scheduler)
			utils.PrintDebug("Work Directory: %s", config.Global.WorkDir)
			if config.Global.SSHHost != "" {
				utils.PrintDebug("Cluster: %s@%s:%d",
					config.Global.SSHUser, config.Global.SSHHost, config.Global.SSHPort)
			}
		}
		if quietMode {
			utils.QuietMode = true
		}
		if dryRunMode {
			config.Global.DryRun = true
			utils.PrintDebug("Dry-run mode enabled (no remote mutation)")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (overrides search paths)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&dryRunMode, "dry-run", false, "Plan and generate without touching the cluster")
}
