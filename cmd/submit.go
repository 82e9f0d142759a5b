package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/workflow"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the planned jobs and monitor them to completion",
	Long: `Submit builds the queue plan against live cluster state, launches the
first batch and then monitors the queue, submitting follow-on batches as
earlier ones finish. Submission and monitoring are inseparable for batch
and sequential strategies, so this command runs both.`,
	Example:      `  autoexsim submit`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflowSteps(cmd, []string{
			workflow.StepConnect,
			workflow.StepQueryCluster,
			workflow.StepGenerateScripts,
			workflow.StepSubmit,
			workflow.StepMonitor,
		})
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
}
