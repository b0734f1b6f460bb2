// Package snapshot periodically copies the current round and its projects
// into the configured sinks.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"snarkcollective/internal/funding"
	"snarkcollective/internal/model"
	"snarkcollective/internal/storage"
)

// Source reads the round and its projects.
type Source interface {
	ForceRefreshRound(ctx context.Context) (model.Round, error)
	FetchAllProjects(ctx context.Context, roundID uint32) ([]model.Project, error)
}

// RunConfig holds runtime settings for the snapshot loop.
type RunConfig struct {
	Interval          time.Duration
	Once              bool
	CheckpointPath    string
	CheckpointEnabled bool
}

// Runner polls the round and its projects and stores a snapshot whenever
// either changed.
type Runner struct {
	cfg        RunConfig
	source     Source
	storage    storage.Storage
	logger     *zap.Logger
	checkpoint *CheckpointStore
	now        func() time.Time
}

func NewRunner(cfg RunConfig, source Source, sink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		storage:    sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		now:        time.Now,
	}
}

// Run syncs once, then on every interval until ctx is done. Failed syncs
// are logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("source is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if !r.cfg.Once && r.cfg.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}

	if _, err := r.Sync(ctx); err != nil {
		if r.cfg.Once || ctx.Err() != nil {
			return err
		}
		r.logger.Warn("snapshot failed", zap.Error(err))
	}
	if r.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := r.Sync(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("snapshot failed", zap.Error(err))
		}
	}
}

// Sync stores a snapshot if the round or its projects differ from the
// checkpoint. It reports whether anything was written. A scan that skipped
// indexes is still written, but the checkpoint is left alone so the next
// sync writes again.
func (r *Runner) Sync(ctx context.Context) (bool, error) {
	round, err := r.source.ForceRefreshRound(ctx)
	if err != nil {
		return false, err
	}

	projects, scanErr := r.source.FetchAllProjects(ctx, round.RoundID)
	partial := errors.Is(scanErr, funding.ErrPartialScan)
	if scanErr != nil && !partial {
		return false, fmt.Errorf("fetch projects: %w", scanErr)
	}

	observedAt := r.now().UTC()
	records := make([]model.ProjectRecord, 0, len(projects))
	for _, p := range projects {
		records = append(records, model.NewProjectRecord(p, observedAt.Format(time.RFC3339)))
	}
	fingerprint, err := Fingerprint(records)
	if err != nil {
		return false, err
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return false, err
	}
	if ok && !partial && cp.Matches(round, fingerprint) {
		r.logger.Debug("round unchanged", zap.Uint32("round", round.RoundID))
		return false, nil
	}

	if err := r.storage.PutSnapshot(ctx, round, records); err != nil {
		return false, fmt.Errorf("store snapshot: %w", err)
	}
	if partial {
		r.logger.Warn("partial snapshot stored, checkpoint not advanced",
			zap.Uint32("round", round.RoundID),
			zap.Int("projects", len(records)),
			zap.Error(scanErr),
		)
		return true, nil
	}
	if err := r.checkpoint.Save(round, fingerprint, observedAt); err != nil {
		return false, err
	}

	r.logger.Info("snapshot complete",
		zap.Uint32("round", round.RoundID),
		zap.Bool("active", round.IsActive),
		zap.Int("projects", len(records)),
	)
	return true, nil
}
