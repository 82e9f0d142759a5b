package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cfx"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/remote"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/scripts"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var cleanRemote bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated case directories, scripts and reports",
	Long: `Clean deletes everything the tool generated in the working directory:
case folders, the CFX-Pre session file, helper scripts, job ID records,
logs and reports. The base model file is never touched. With --remote the
configured remote directory is emptied as well.`,
	Example: `  autoexsim clean
  autoexsim clean --remote`,
	SilenceUsage: true,
	RunE:         runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&cleanRemote, "remote", false, "Also empty the remote directory")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg := &config.Global
	removed := 0

	for _, c := range cfx.CasesFor(cfg, cfg.WorkDir) {
		if removeIfPresent(c.Dir) {
			removed++
		}
	}

	fixed := []string{
		cfx.SessionFilename,
		scripts.SubmitScriptName,
		scripts.MonitorScriptName,
		scripts.JobIDsFilename,
	}
	for _, name := range fixed {
		if removeIfPresent(filepath.Join(cfg.WorkDir, name)) {
			removed++
		}
	}

	patterns := []string{"workflow_report_*.json", "monitoring_report_*.json", "autoexsim_*.log"}
	for _, pat := range patterns {
		matches, _ := filepath.Glob(filepath.Join(cfg.WorkDir, pat))
		for _, path := range matches {
			if removeIfPresent(path) {
				removed++
			}
		}
	}

	if removed == 0 {
		utils.PrintMessage("Nothing to clean in %s", utils.StylePath(cfg.WorkDir))
	} else {
		utils.PrintSuccess("Removed %d item(s) from %s", removed, utils.StylePath(cfg.WorkDir))
	}

	if cleanRemote {
		return cleanRemoteDir(cmd)
	}
	return nil
}

func cleanRemoteDir(cmd *cobra.Command) error {
	if config.Global.SSHHost == "" {
		return remote.ErrNotConnected
	}

	client := remote.NewSSHClient(&config.Global)
	if err := client.Connect(cmd.Context()); err != nil {
		return err
	}
	defer client.Close()

	transfer, err := remote.NewTransfer(client, config.Global.TransferRetries, false)
	if err != nil {
		return err
	}

	// SFTP resolves relative paths against the remote home
	dir := strings.TrimPrefix(config.Global.RemoteDir, "~/")
	if err := transfer.RemoveAll(dir); err != nil {
		return err
	}
	utils.PrintSuccess("Emptied remote directory %s", utils.StylePath(config.Global.RemoteDir))
	return nil
}

func removeIfPresent(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if err := os.RemoveAll(path); err != nil {
		utils.PrintWarning("Could not remove %s: %v", path, err)
		return false
	}
	utils.PrintDebug("Removed %s", path)
	return true
}
