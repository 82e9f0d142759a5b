package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cfx"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the local CFX installation and scheduler binaries",
	Long: `Detect locates the ANSYS CFX toolchain (environment variables, common
install roots, PATH) and any local scheduler submit binary, and reports what
it finds. Nothing is written.`,
	Example: `  autoexsim detect           # Report CFX and scheduler detection results
  autoexsim detect --debug   # Include the probed locations`,
	SilenceUsage: true,
	RunE:         runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	inst, err := cfx.Detect()
	if err != nil {
		utils.PrintWarning("No CFX installation found")
		utils.PrintHint("Set cfx.home in the config file or export CFX_HOME")
	} else {
		utils.PrintSuccess("CFX found at %s (%s)", utils.StylePath(inst.Home), inst.Method)
		if version, verr := inst.QueryVersion(cmd.Context()); verr == nil {
			if cfx.IsSupported(version) {
				utils.PrintMessage("CFX release: %s", utils.StyleNumber(version))
			} else {
				utils.PrintWarning("CFX release %s is older than the supported minimum %s",
					version, cfx.MinVersion)
			}
		} else {
			utils.PrintNote("CFX release could not be determined: %v", verr)
		}
	}

	if bin, scheduler := config.DetectSchedulerBin(); bin != "" {
		utils.PrintSuccess("Local scheduler: %s (%s)", scheduler, utils.StylePath(bin))
	} else {
		utils.PrintMessage("No local scheduler binary; submission will go through SSH")
	}
	return nil
}
