package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/workflow"
)

var (
	runSteps     []string
	runPressures []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full workflow: generate, upload, submit and monitor",
	Long: `Run executes the automation pipeline end to end. The steps are:

  ` + strings.Join(workflow.AllSteps, ", ") + `

Use --steps to run a subset and --pressures to override the configured back
pressure list for this run. With --dry-run nothing touches the cluster.`,
	Example: `  autoexsim run                                  # Everything
  autoexsim run --steps connect,query-cluster    # Subset
  autoexsim run --pressures 2187,2189,2191       # Override the case list
  autoexsim run --dry-run                        # Generate locally only`,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVar(&runSteps, "steps", nil, "Comma-separated subset of workflow steps")
	runCmd.Flags().StringSliceVar(&runPressures, "pressures", nil, "Override the back pressure list (Pa)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(runPressures) > 0 {
		pressures := make([]float64, 0, len(runPressures))
		for _, s := range runPressures {
			p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return err
			}
			pressures = append(pressures, p)
		}
		config.Global.Pressures = pressures
		utils.PrintDebug("Pressure list overridden: %v", pressures)
	}

	return runWorkflowSteps(cmd, runSteps)
}

// runWorkflowSteps validates the config, creates a workflow run and executes
// the given steps (all of them when steps is empty).
func runWorkflowSteps(cmd *cobra.Command, steps []string) error {
	if err := requireValidConfig(); err != nil {
		return err
	}

	w, err := workflow.New(&config.Global)
	if err != nil {
		return err
	}
	utils.PrintMessage("Run %s (log: %s)", utils.StyleHighlight(w.RunID), utils.StylePath(w.LogPath))

	_, err = w.Run(cmd.Context(), steps)
	return err
}
