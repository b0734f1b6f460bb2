package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snarkcollective/internal/config"
	"snarkcollective/internal/snapshot"
	"snarkcollective/internal/storage"
	"snarkcollective/internal/storage/postgres"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Snapshot the round and its projects whenever they change",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	cmd.Flags().String("out", "./data/projects.jsonl", "output JSONL path")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	cmd.Flags().Duration("interval", 0, "poll interval (defaults to 1m)")
	cmd.Flags().Bool("once", false, "take one snapshot and exit")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a, err := buildApp(cfg.Config)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	if err := a.keysReady(ctx); err != nil {
		return err
	}

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	runner := snapshot.NewRunner(snapshot.RunConfig{
		Interval:          cfg.Interval,
		Once:              cfg.Once,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, a.service, sinks, a.logger.Named("snapshot"))

	a.logger.Info("watch start",
		zap.String("explorer", cfg.ExplorerURL),
		zap.String("program", cfg.ProgramID),
		zap.Duration("interval", cfg.Interval),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)
	return runner.Run(ctx)
}
