package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage settings_overrides",
	Long: `Manage the database-backed settings overrides layered on top of the
JSON settings file: memory_extraction_threshold and allowed_subjects.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a single override's value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := store.GetAllOverrides(rootCtx)
		if err != nil {
			return err
		}
		value, ok := overrides[args[0]]
		if !ok {
			return fmt.Errorf("no override set for %q", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a settings override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.SetSettingOverride(rootCtx, args[0], args[1])
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := store.GetAllOverrides(rootCtx)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(overrides))
		for k := range overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, overrides[k])
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store-wide memory counts by lifecycle state",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Stats(rootCtx)
		if err != nil {
			return err
		}
		return printResult(s)
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd, statsCmd)
}
