package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

var archiveUserID string

var archiveCmd = &cobra.Command{
	Use:   "archive <memory_id>",
	Short: "Archive a memory (active or superseded -> archived)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		result := tool.ArchiveMemory(rootCtx, archiveUserID, id)
		return printResult(result)
	},
}

func init() {
	archiveCmd.Flags().StringVar(&archiveUserID, "user", "default_user", "user id")
	rootCmd.AddCommand(archiveCmd)
}
