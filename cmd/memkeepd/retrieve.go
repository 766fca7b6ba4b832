package main

import (
	"github.com/spf13/cobra"

	"github.com/ridgeway/memkeep/internal/facade"
)

var (
	retrieveUserID      string
	retrieveScope       []string
	retrieveStateFilter string
	retrieveLimit       int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Run a governed retrieval against the memory store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		result := tool.RetrieveMemory(rootCtx, facade.RetrieveRequest{
			Query:       query,
			Scope:       retrieveScope,
			StateFilter: retrieveStateFilter,
			Limit:       retrieveLimit,
			UserID:      retrieveUserID,
		})
		return printResult(result)
	},
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveUserID, "user", "default_user", "user id")
	retrieveCmd.Flags().StringSliceVar(&retrieveScope, "scope", nil, "comma-separated subject scope, default any")
	retrieveCmd.Flags().StringVar(&retrieveStateFilter, "state", "active", "lifecycle state filter")
	retrieveCmd.Flags().IntVar(&retrieveLimit, "limit", 5, "max rows, capped at 20")
	rootCmd.AddCommand(retrieveCmd)
}
