package funding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"snarkcollective/internal/keys"
	"snarkcollective/internal/model"
	"snarkcollective/internal/wallet"
)

// SubmitProject submits a project for the next index of the current round.
// Submission is only open while the round is inactive. Strings are sent
// as-is; the program packs them into fields.
func (s *Service) SubmitProject(ctx context.Context, title, img, description string) (string, error) {
	s.clearError()
	round, ok := s.CurrentRound()
	if !ok {
		return "", s.fail(ErrNoRound)
	}
	if round.IsActive {
		return "", s.fail(ErrRoundActive)
	}
	next, ok := round.NextSubmissionIndex()
	if !ok {
		return "", s.fail(fmt.Errorf("round %d: %w", round.RoundID, ErrRoundFull))
	}
	inputs := []string{
		title,
		img,
		description,
		fmt.Sprintf("%du32", round.RoundID),
		fmt.Sprintf("%du16", next),
	}
	return s.execute(ctx, FnSubmitProject, inputs, FeeStandard)
}

// Donate sends amount microcredits to the project identified by key from
// the connected account.
func (s *Service) Donate(ctx context.Context, key keys.ProjectKey, amount uint64) (string, error) {
	s.clearError()
	session := s.bridge.Session()
	if !session.Connected() {
		return "", s.fail(wallet.ErrNotConnected)
	}
	inputs := []string{key.String(), fmt.Sprintf("%du64", amount), session.Address}
	return s.execute(ctx, FnDonate, inputs, FeeStandard)
}

// ApproveProject re-submits the project's full info under its derived key.
// The info must carry the field literals read from chain.
func (s *Service) ApproveProject(ctx context.Context, roundID uint32, projectIndex uint16, info model.ProjectInfo) (string, error) {
	s.clearError()
	key, err := s.deriver.DeriveProjectKey(roundID, projectIndex)
	if err != nil {
		return "", s.fail(fmt.Errorf("derive project key: %w", err))
	}
	return s.execute(ctx, FnApprove, []string{key.String(), info.Literal()}, FeeApprove)
}

func (s *Service) StartRound(ctx context.Context) (string, error) {
	s.clearError()
	return s.execute(ctx, FnStartRound, []string{}, FeeStandard)
}

func (s *Service) FinishRound(ctx context.Context) (string, error) {
	s.clearError()
	return s.execute(ctx, FnFinishRound, []string{}, FeeStandard)
}

// execute submits one program call and refetches the round once the wallet
// accepted it. Failed submissions are not retried. A failed refetch is only
// logged: the transaction itself succeeded.
func (s *Service) execute(ctx context.Context, function string, inputs []string, fee uint64) (string, error) {
	if !s.bridge.Session().Connected() {
		return "", s.fail(wallet.ErrNotConnected)
	}
	id, err := s.bridge.SubmitTransaction(ctx, wallet.TransactionRequest{
		ProgramID:    s.cfg.ProgramID,
		FunctionName: function,
		Inputs:       inputs,
		Fee:          fee,
	})
	if err != nil {
		return "", s.fail(fmt.Errorf("%s: %w", function, err))
	}
	s.logger.Info("transaction submitted", zap.String("function", function), zap.String("tx", id))
	if _, err := s.refreshRound(ctx); err != nil {
		s.logger.Warn("round refetch after transaction failed", zap.String("function", function), zap.Error(err))
	}
	return id, nil
}
