package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cfx"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var checkRemote bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the environment is ready for a workflow run",
	Long: `Check validates the configuration, the base model file, the local CFX
installation and (with --remote) the SSH connection and remote scheduler.`,
	Example: `  autoexsim check            # Validate config and local environment
  autoexsim check --remote   # Also probe the cluster over SSH`,
	SilenceUsage: true,
	RunE:         runCheckCmd,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkRemote, "remote", false, "Also check the SSH connection and remote scheduler")
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	problems := 0

	if !config.Global.PrintValidation() {
		problems++
	}

	if config.Global.BaseModel == "" {
		utils.PrintWarning("No base model configured (cfx.base_model)")
		problems++
	} else if !utils.FileExists(config.Global.BaseModel) {
		utils.PrintError("Base model does not exist: %s", config.Global.BaseModel)
		problems++
	} else {
		utils.PrintSuccess("Base model: %s", utils.StylePath(config.Global.BaseModel))
	}

	if config.Global.InitialFile != "" && !utils.FileExists(config.Global.InitialFile) {
		utils.PrintWarning("Initial values file not found locally: %s", config.Global.InitialFile)
	}

	if _, err := cfx.Detect(); err != nil {
		utils.PrintWarning("No local CFX installation; case generation will fail")
	} else {
		utils.PrintSuccess("CFX installation present")
	}

	if checkRemote {
		if err := checkCluster(cmd); err != nil {
			utils.PrintError("Cluster check failed: %v", err)
			problems++
		}
	}

	if problems > 0 {
		utils.PrintHint("Fix the problems above before running %s", utils.StyleAction("autoexsim run"))
		return nil
	}
	utils.PrintSuccess("Environment is ready")
	return nil
}

func checkCluster(cmd *cobra.Command) error {
	client, closer, err := clusterClient(cmd.Context(), true)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	utils.PrintSuccess("Connected; scheduler is %s", client.Kind())
	nodes, err := client.QueryNodes(cmd.Context())
	if err != nil {
		return err
	}
	utils.PrintSuccess("Scheduler answered with %d node(s)", len(nodes))
	return nil
}
