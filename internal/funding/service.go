// Package funding composes the chain reader, the key deriver and the wallet
// bridge into the round and project operations of the crowdfunding program.
package funding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"snarkcollective/internal/chain"
	"snarkcollective/internal/keys"
	"snarkcollective/internal/model"
	"snarkcollective/internal/wallet"
)

var (
	ErrNoRound     = errors.New("round not loaded")
	ErrRoundActive = errors.New("project submission is closed while the round is active")
	ErrRoundFull   = errors.New("round has no free project index")
	// ErrPartialScan is wrapped by scans that skipped indexes. The projects
	// returned alongside it are still valid.
	ErrPartialScan = errors.New("project scan incomplete")
)

// Program functions.
const (
	FnSubmitProject = "submit_project"
	FnDonate        = "donate_public"
	FnApprove       = "approve_project"
	FnStartRound    = "start_round"
	FnFinishRound   = "finish_round"
)

// Fees in microcredits.
const (
	FeeStandard uint64 = 2_000_000
	FeeApprove  uint64 = 500_000
)

// DefaultRoundSlot is the rounds mapping key holding the current round.
const DefaultRoundSlot uint8 = 1

// DefaultReadTimeout bounds a shared round read. It applies to the read
// itself, not to the callers waiting on it.
const DefaultReadTimeout = 30 * time.Second

const roundKey = "round"

// Reader reads program mappings.
type Reader interface {
	GetRound(ctx context.Context, slot uint8) (model.Round, error)
	GetProjectDetails(ctx context.Context, mapping, key string) (*model.ProjectInfo, error)
}

// KeyDeriver derives project keys.
type KeyDeriver interface {
	DeriveProjectKey(roundID uint32, projectIndex uint16) (keys.ProjectKey, error)
}

// Transactor submits transactions through the connected wallet.
type Transactor interface {
	Session() wallet.Session
	SubmitTransaction(ctx context.Context, req wallet.TransactionRequest) (string, error)
}

type Config struct {
	ProgramID   string
	RoundSlot   uint8
	ReadTimeout time.Duration
}

type Service struct {
	reader  Reader
	deriver KeyDeriver
	bridge  Transactor
	cfg     Config
	logger  *zap.Logger

	refresh singleflight.Group

	mu      sync.Mutex
	round   *model.Round
	gen     uint64
	lastErr string
}

func NewService(cfg Config, reader Reader, deriver KeyDeriver, bridge Transactor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RoundSlot == 0 {
		cfg.RoundSlot = DefaultRoundSlot
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &Service{
		reader:  reader,
		deriver: deriver,
		bridge:  bridge,
		cfg:     cfg,
		logger:  logger,
	}
}

// LastError is the message of the most recent failed operation.
func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Service) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	return err
}

func (s *Service) clearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// CurrentRound returns the cached round, if one was fetched.
func (s *Service) CurrentRound() (model.Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return model.Round{}, false
	}
	return *s.round, true
}

// FetchCurrentRound reads the round slot. Callers arriving while a read is
// in flight share its result instead of issuing another request.
func (s *Service) FetchCurrentRound(ctx context.Context) (model.Round, error) {
	round, err := s.readRound(ctx)
	if err != nil {
		return model.Round{}, s.fail(err)
	}
	return round, nil
}

// ForceRefreshRound starts a new read even when one is in flight, so the
// result reflects state after any transaction that completed before the call.
func (s *Service) ForceRefreshRound(ctx context.Context) (model.Round, error) {
	round, err := s.refreshRound(ctx)
	if err != nil {
		return model.Round{}, s.fail(err)
	}
	return round, nil
}

// refreshRound is ForceRefreshRound without touching LastError. A read
// started by an earlier caller can still finish, but it no longer updates
// the cached round.
func (s *Service) refreshRound(ctx context.Context) (model.Round, error) {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
	s.refresh.Forget(roundKey)
	return s.readRound(ctx)
}

// readRound joins or starts the shared read. The read runs detached from
// any single caller's cancellation, bounded by ReadTimeout; each caller
// still stops waiting when its own ctx is done.
func (s *Service) readRound(ctx context.Context) (model.Round, error) {
	ch := s.refresh.DoChan(roundKey, func() (interface{}, error) {
		s.mu.Lock()
		gen := s.gen
		s.mu.Unlock()

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ReadTimeout)
		defer cancel()
		round, err := s.reader.GetRound(rctx, s.cfg.RoundSlot)
		if err != nil {
			return model.Round{}, err
		}

		s.mu.Lock()
		if gen == s.gen {
			s.round = &round
		}
		s.mu.Unlock()
		return round, nil
	})

	select {
	case <-ctx.Done():
		return model.Round{}, fmt.Errorf("fetch round: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return model.Round{}, fmt.Errorf("fetch round: %w", res.Err)
		}
		if res.Shared {
			s.logger.Debug("round read shared with in-flight refresh")
		}
		return res.Val.(model.Round), nil
	}
}

func (s *Service) roundFor(ctx context.Context, roundID uint32) (model.Round, error) {
	round, ok := s.CurrentRound()
	if !ok {
		var err error
		if round, err = s.FetchCurrentRound(ctx); err != nil {
			return model.Round{}, err
		}
	}
	if round.RoundID != roundID {
		return model.Round{}, s.fail(fmt.Errorf("round %d is not the current round %d: %w", roundID, round.RoundID, ErrNoRound))
	}
	return round, nil
}

// PartialScanError lists the indexes a scan could not read.
type PartialScanError struct {
	RoundID uint32
	Skipped []uint16
	Err     error
}

func (e *PartialScanError) Error() string {
	return fmt.Sprintf("round %d: %d indexes skipped: %v", e.RoundID, len(e.Skipped), e.Err)
}

func (e *PartialScanError) Is(target error) bool { return target == ErrPartialScan }

func (e *PartialScanError) Unwrap() error { return e.Err }

type scanSource struct {
	mapping string
	status  model.ProjectStatus
}

var (
	approvedSource  = scanSource{mapping: chain.MappingApproved, status: model.ProjectApproved}
	submittedSource = scanSource{mapping: chain.MappingSubmitted, status: model.ProjectPending}
)

// FetchAllProjects scans indexes 1..max(submitted, approved) of the round.
// The approved mapping is authoritative: an index found there is never read
// from the submitted mapping. Failed indexes are logged and skipped; the
// projects found are then returned with a *PartialScanError.
func (s *Service) FetchAllProjects(ctx context.Context, roundID uint32) ([]model.Project, error) {
	round, err := s.roundFor(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, round.RoundID, round.MaxProjectIndex(), []scanSource{approvedSource, submittedSource}, nil)
}

// FetchApprovedProjects reads only the approved mapping.
func (s *Service) FetchApprovedProjects(ctx context.Context, roundID uint32) ([]model.Project, error) {
	round, err := s.roundFor(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, round.RoundID, round.ApprovedProjects, []scanSource{approvedSource}, func(info *model.ProjectInfo) bool {
		return info.IsApproved
	})
}

// FetchSubmittedProjects reads only the submitted mapping and keeps
// projects still waiting for approval.
func (s *Service) FetchSubmittedProjects(ctx context.Context, roundID uint32) ([]model.Project, error) {
	round, err := s.roundFor(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, round.RoundID, round.SubmittedProjects, []scanSource{submittedSource}, func(info *model.ProjectInfo) bool {
		return !info.IsApproved
	})
}

func (s *Service) scan(ctx context.Context, roundID uint32, maxIndex uint16, sources []scanSource, keep func(*model.ProjectInfo) bool) ([]model.Project, error) {
	var (
		projects []model.Project
		skipped  []uint16
		failures *multierror.Error
	)
	for i := 1; i <= int(maxIndex); i++ {
		if err := ctx.Err(); err != nil {
			return projects, err
		}
		idx := uint16(i)
		key, err := s.deriver.DeriveProjectKey(roundID, idx)
		if err != nil {
			if errors.Is(err, keys.ErrBackendLoading) || errors.Is(err, keys.ErrBackendFailed) {
				return nil, s.fail(fmt.Errorf("derive project key: %w", err))
			}
			skipped = append(skipped, idx)
			failures = multierror.Append(failures, fmt.Errorf("index %d: %w", idx, err))
			continue
		}

		project, found, err := s.lookup(ctx, roundID, idx, key, sources)
		if err != nil {
			skipped = append(skipped, idx)
			failures = multierror.Append(failures, fmt.Errorf("index %d: %w", idx, err))
			continue
		}
		if !found || (keep != nil && !keep(&project.Info)) {
			continue
		}
		projects = append(projects, project)
	}
	if err := failures.ErrorOrNil(); err != nil {
		s.logger.Warn("project scan skipped indexes",
			zap.Uint32("round", roundID),
			zap.Int("skipped", len(skipped)),
			zap.Error(err),
		)
		return projects, &PartialScanError{RoundID: roundID, Skipped: skipped, Err: err}
	}
	return projects, nil
}

func (s *Service) lookup(ctx context.Context, roundID uint32, idx uint16, key keys.ProjectKey, sources []scanSource) (model.Project, bool, error) {
	for _, src := range sources {
		info, err := s.reader.GetProjectDetails(ctx, src.mapping, key.String())
		if err != nil {
			return model.Project{}, false, fmt.Errorf("%s: %w", src.mapping, err)
		}
		if info == nil {
			continue
		}
		return model.Project{
			RoundID: roundID,
			Index:   idx,
			Key:     key.String(),
			ID:      key.ID(),
			Status:  src.status,
			Info:    *info,
		}, true, nil
	}
	return model.Project{}, false, nil
}
