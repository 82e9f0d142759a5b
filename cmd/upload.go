package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/workflow"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload case directories and scripts to the cluster",
	Long: `Upload pushes the working directory (case folders, def files, job and
helper scripts) to the configured remote directory over SFTP. Script files
get LF line endings; transfers are checksum-verified and retried.`,
	Example:      `  autoexsim upload`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflowSteps(cmd, []string{workflow.StepConnect, workflow.StepUpload})
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
