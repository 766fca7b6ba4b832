package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	memconfig "github.com/ridgeway/memkeep/internal/config"
	"github.com/ridgeway/memkeep/internal/facade"
	"github.com/ridgeway/memkeep/internal/logging"
	"github.com/ridgeway/memkeep/internal/policy"
	"github.com/ridgeway/memkeep/internal/storage/sqlite"
)

var (
	dbPath       string
	settingsPath string
	jsonOutput   bool

	store  *sqlite.Storage
	engine *policy.Engine
	tool   *facade.MemoryTool
	log    *slog.Logger

	rootCtx context.Context
)

var rootCmd = &cobra.Command{
	Use:           "memkeepd",
	Short:         "Per-user long-term memory store with policy-governed writes",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		rootCtx = context.Background()
		log = logging.New(os.Stderr, logging.Options{Level: slog.LevelInfo})

		s, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		store = s
		engine = policy.NewEngine(store, log)
		loader := func(ctx context.Context) (memconfig.Settings, error) {
			return memconfig.Load(ctx, settingsPath, store, log)
		}
		tool = facade.New(engine, loader, log)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store == nil {
			return nil
		}
		return store.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "memkeep.db", "path to the SQLite memory store")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "memkeep.settings.json", "path to the JSON settings file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
}
