package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridgeway/memkeep/internal/facade"
)

var (
	storeSessionID  string
	storeUserID     string
	storeAccessMode string
	storeImportance int
)

var storeCmd = &cobra.Command{
	Use:   "store <content> <memory_date> <subject>",
	Short: "Evaluate and store a memory proposal through the Policy Engine",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := tool.StoreMemory(rootCtx, facade.StoreRequest{
			Content:    args[0],
			MemoryDate: args[1],
			Subject:    args[2],
			Importance: storeImportance,
			SessionID:  storeSessionID,
			UserID:     storeUserID,
			AccessMode: storeAccessMode,
		})
		return printResult(result)
	},
}

func init() {
	storeCmd.Flags().StringVar(&storeSessionID, "session", "default", "session id")
	storeCmd.Flags().StringVar(&storeUserID, "user", "default_user", "user id")
	storeCmd.Flags().StringVar(&storeAccessMode, "access-mode", "private", "private or shared")
	storeCmd.Flags().IntVar(&storeImportance, "importance", 3, "importance, 1-5")
	rootCmd.AddCommand(storeCmd)
}

func printResult(v any) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintf(os.Stdout, "%+v\n", v)
	return nil
}
