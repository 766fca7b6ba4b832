package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

var deleteUserID string

var deleteCmd = &cobra.Command{
	Use:   "delete <memory_id>",
	Short: "Delete a memory (active or superseded -> deleted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		result := tool.DeleteMemory(rootCtx, deleteUserID, id)
		return printResult(result)
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteUserID, "user", "default_user", "user id")
	rootCmd.AddCommand(deleteCmd)
}
