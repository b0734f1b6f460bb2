package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snarkcollective/internal/model"
)

// Schema creates the snapshot tables.
const Schema = `
CREATE TABLE IF NOT EXISTS rounds (
	round_id           BIGINT PRIMARY KEY,
	is_active          BOOLEAN NOT NULL,
	approved_projects  INTEGER NOT NULL,
	submitted_projects INTEGER NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS projects (
	round_id         BIGINT NOT NULL,
	project_index    INTEGER NOT NULL,
	project_key      TEXT NOT NULL,
	status           TEXT NOT NULL,
	project_owner    TEXT NOT NULL,
	collected_amount BIGINT NOT NULL,
	joined_round     BIGINT NOT NULL,
	num_supporters   BIGINT NOT NULL,
	is_approved      BOOLEAN NOT NULL,
	is_claimed       BOOLEAN NOT NULL,
	title            TEXT NOT NULL,
	img              TEXT NOT NULL,
	description      TEXT NOT NULL,
	observed_at      TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (round_id, project_index)
);
`

// Store provides Postgres persistence for round snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutSnapshot upserts the round and its projects.
func (s *Store) PutSnapshot(ctx context.Context, round model.Round, projects []model.ProjectRecord) error {
	if err := s.UpsertRound(ctx, round); err != nil {
		return fmt.Errorf("upsert round: %w", err)
	}
	if err := s.UpsertProjects(ctx, projects); err != nil {
		return fmt.Errorf("upsert projects: %w", err)
	}
	return nil
}

// UpsertRound inserts or updates round counters.
func (s *Store) UpsertRound(ctx context.Context, round model.Round) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rounds (round_id, is_active, approved_projects, submitted_projects, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (round_id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			approved_projects = EXCLUDED.approved_projects,
			submitted_projects = EXCLUDED.submitted_projects,
			updated_at = now()
	`,
		int64(round.RoundID),
		round.IsActive,
		int32(round.ApprovedProjects),
		int32(round.SubmittedProjects),
	)
	return err
}

// UpsertProjects inserts or updates project rows. A project's status only
// moves from pending to approved.
func (s *Store) UpsertProjects(ctx context.Context, projects []model.ProjectRecord) error {
	if len(projects) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range projects {
		batch.Queue(`
			INSERT INTO projects (
				round_id, project_index, project_key, status, project_owner, collected_amount,
				joined_round, num_supporters, is_approved, is_claimed, title, img, description,
				observed_at, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
			ON CONFLICT (round_id, project_index)
			DO UPDATE SET
				project_key = EXCLUDED.project_key,
				status = CASE WHEN projects.status = 'approved' THEN projects.status ELSE EXCLUDED.status END,
				project_owner = EXCLUDED.project_owner,
				collected_amount = EXCLUDED.collected_amount,
				joined_round = EXCLUDED.joined_round,
				num_supporters = EXCLUDED.num_supporters,
				is_approved = EXCLUDED.is_approved,
				is_claimed = EXCLUDED.is_claimed,
				title = EXCLUDED.title,
				img = EXCLUDED.img,
				description = EXCLUDED.description,
				observed_at = EXCLUDED.observed_at,
				updated_at = now()
		`,
			int64(p.RoundID),
			int32(p.ProjectIndex),
			p.ProjectKey,
			p.Status,
			p.ProjectOwner,
			int64(p.CollectedAmount),
			int64(p.JoinedRound),
			int64(p.NumSupporters),
			p.IsApproved,
			p.IsClaimed,
			p.Title,
			p.Img,
			p.Description,
			p.ObservedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range projects {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
