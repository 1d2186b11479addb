package raffleservice

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

// CheckUpkeep reports whether the round may close. It never writes.
func (s *RaffleService) CheckUpkeep(ctx context.Context, performData []byte) (*UpkeepResult, error) {
	checkTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*UpkeepResult, error], error) {
		round, err := s.repo.GetRaffle(ctx, db, s.cfg.RaffleID)
		if err != nil {
			return results.OperationResult[*UpkeepResult, error]{}, fmt.Errorf("failed to load raffle: %w", err)
		}
		status := round.CheckUpkeep(s.clock.Now())
		if s.metrics != nil {
			s.metrics.RecordUpkeepCheck(ctx, status.Needed)
		}
		return results.SuccessResult[*UpkeepResult, error](&UpkeepResult{
			RaffleID:     round.ID,
			UpkeepNeeded: status.Needed,
			Status:       status,
			PerformData:  []byte{},
		}), nil
	}

	result, err := withTelemetry(s, ctx, "CheckUpkeep", s.cfg.RaffleID.String(), func(ctx context.Context) (results.OperationResult[*UpkeepResult, error], error) {
		return runInTx(s, ctx, checkTx)
	})
	return unwrap(result, err)
}

// PerformUpkeep closes an eligible round and requests randomness for it.
// performData is accepted for compatibility and ignored; eligibility is always
// recomputed.
func (s *RaffleService) PerformUpkeep(ctx context.Context, performData []byte) (*PerformUpkeepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	performTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*PerformUpkeepResult, error], error) {
		return s.performUpkeepLogic(ctx, db)
	}

	result, err := withTelemetry(s, ctx, "PerformUpkeep", s.cfg.RaffleID.String(), func(ctx context.Context) (results.OperationResult[*PerformUpkeepResult, error], error) {
		return runInTx(s, ctx, performTx)
	})
	return unwrap(result, err)
}

func (s *RaffleService) performUpkeepLogic(ctx context.Context, db bun.IDB) (results.OperationResult[*PerformUpkeepResult, error], error) {
	round, err := s.repo.GetRaffleForUpdate(ctx, db, s.cfg.RaffleID)
	if err != nil {
		return results.OperationResult[*PerformUpkeepResult, error]{}, fmt.Errorf("failed to load raffle: %w", err)
	}

	if err := round.BeginClosing(s.clock.Now()); err != nil {
		return results.FailureResult[*PerformUpkeepResult, error](err), nil
	}
	// CLOSING is written before the coordinator is called.
	if err := s.repo.UpdateRaffle(ctx, db, round); err != nil {
		return results.OperationResult[*PerformUpkeepResult, error]{}, err
	}

	requestID, err := s.coordinator.RequestRandomWords(ctx, RandomWordsRequest{
		KeyHash:              s.cfg.KeyHash,
		SubscriptionID:       s.cfg.SubscriptionID,
		RequestConfirmations: raffledomain.RequestConfirmations,
		CallbackGasLimit:     s.cfg.CallbackGasLimit,
		NumWords:             raffledomain.NumWords,
		Consumer:             s.cfg.Address,
	})
	if err != nil {
		return results.OperationResult[*PerformUpkeepResult, error]{}, fmt.Errorf("failed to request random words: %w", err)
	}

	if err := round.RecordRequest(requestID); err != nil {
		return results.OperationResult[*PerformUpkeepResult, error]{}, fmt.Errorf("coordinator returned unusable request: %w", err)
	}
	if err := s.repo.UpdateRaffle(ctx, db, round); err != nil {
		return results.OperationResult[*PerformUpkeepResult, error]{}, err
	}
	s.recordRound(ctx, round)

	s.logger.InfoContext(ctx, "Requested raffle winner",
		attr.ExtractCorrelationID(ctx),
		attr.Int64("request_id", int64(requestID)),
		attr.Int("players", len(round.Players)),
		attr.Int64("pot", round.Pot),
	)

	return results.SuccessResult[*PerformUpkeepResult, error](&PerformUpkeepResult{
		RaffleID:  round.ID,
		RequestID: requestID,
	}), nil
}
