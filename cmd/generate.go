package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/workflow"
)

var (
	generateCases   bool
	generateScripts bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate CFX case definitions and scheduler job scripts",
	Long: `Generate runs CFX-Pre to produce one def file per configured back
pressure (--cases), then builds the queue plan and writes the job and helper
scripts (--scripts). With neither flag both phases run.`,
	Example: `  autoexsim generate             # Cases and scripts
  autoexsim generate --cases     # Only run CFX-Pre
  autoexsim generate --scripts   # Only plan and write scripts`,
	SilenceUsage: true,
	RunE:         runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&generateCases, "cases", false, "Generate def files with CFX-Pre")
	generateCmd.Flags().BoolVar(&generateScripts, "scripts", false, "Generate job and helper scripts")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var steps []string
	if generateCases || !generateScripts {
		steps = append(steps, workflow.StepVerifyCFX, workflow.StepGenerateCases)
	}
	if generateScripts || !generateCases {
		steps = append(steps, workflow.StepQueryCluster, workflow.StepGenerateScripts)
	}
	return runWorkflowSteps(cmd, steps)
}
