package storage

import (
	"context"

	"snarkcollective/internal/model"
)

// Storage defines a sink for round snapshots.
type Storage interface {
	PutSnapshot(ctx context.Context, round model.Round, projects []model.ProjectRecord) error
}

// Multi fans a snapshot out to several sinks in order, stopping at the
// first failure.
type Multi []Storage

func (m Multi) PutSnapshot(ctx context.Context, round model.Round, projects []model.ProjectRecord) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.PutSnapshot(ctx, round, projects); err != nil {
			return err
		}
	}
	return nil
}
