package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cfx"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-case progress in the working directory",
	Long: `Status scans the working directory and classifies each configured case:
not generated, case directory only, def file ready, or solved (a solver
result file exists). Use the monitor command for live scheduler state.`,
	Example:      `  autoexsim status`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses := cfx.ScanCases(&config.Global, config.Global.WorkDir)
		cfx.PrintStatus(statuses)

		solved := 0
		for _, st := range statuses {
			if st.State == cfx.CaseSolved {
				solved++
			}
		}
		utils.PrintMessage("%d/%d case(s) solved", solved, len(statuses))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
