package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage the configuration",
}

var configShowCmd = &cobra.Command{
	Use:          "show",
	Short:        "Show the effective configuration",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := viper.AllKeys()
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("%s = %v\n", key, viper.Get(key))
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:          "init",
	Short:        "Write the current configuration to the user config file",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveConfig(); err != nil {
			return err
		}
		path, err := config.GetUserConfigPath()
		if err != nil {
			return err
		}
		utils.PrintSuccess("Configuration written to %s", utils.StylePath(path))
		utils.PrintHint("Edit it and set ssh.host, ssh.user and cfx.base_model")
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:          "validate",
	Short:        "Validate the effective configuration",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.Global.PrintValidation() {
			return fmt.Errorf("configuration is invalid")
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:          "path",
	Short:        "Show the config file search result",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Println(used)
			return nil
		}
		path, err := config.GetUserConfigPath()
		if err != nil {
			return err
		}
		utils.PrintMessage("No config file found; defaults in effect")
		utils.PrintHint("Create one with %s (would live at %s)",
			utils.StyleAction("autoexsim config init"), utils.StylePath(path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPathCmd)
}
