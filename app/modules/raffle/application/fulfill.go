package raffleservice

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/payout"
	raffledb "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

// FulfillRandomWords resolves the pending request. Only the configured oracle
// may call it. A failed prize transfer is returned as an error wrapping
// ErrTransferFailed so the transaction, including the reset, rolls back and the
// round stays CLOSING.
func (s *RaffleService) FulfillRandomWords(ctx context.Context, caller raffledomain.Address, requestID raffledomain.RequestID, randomWords []*big.Int) (*FulfillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fulfillTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*FulfillResult, error], error) {
		return s.fulfillLogic(ctx, db, requestID, randomWords)
	}

	result, err := withTelemetry(s, ctx, "FulfillRandomWords", fmt.Sprintf("%d", requestID), func(ctx context.Context) (results.OperationResult[*FulfillResult, error], error) {
		if caller != s.cfg.OracleAddress {
			return results.FailureResult[*FulfillResult, error](
				fmt.Errorf("%w: caller %s", raffledomain.ErrOnlyCoordinatorCanFulfill, caller),
			), nil
		}
		return runInTx(s, ctx, fulfillTx)
	})
	return unwrap(result, err)
}

func (s *RaffleService) fulfillLogic(ctx context.Context, db bun.IDB, requestID raffledomain.RequestID, randomWords []*big.Int) (results.OperationResult[*FulfillResult, error], error) {
	round, err := s.repo.GetRaffleForUpdate(ctx, db, s.cfg.RaffleID)
	if err != nil {
		return results.OperationResult[*FulfillResult, error]{}, fmt.Errorf("failed to load raffle: %w", err)
	}

	now := s.clock.Now()
	prize, err := round.Resolve(requestID, randomWords, now)
	if err != nil {
		return results.FailureResult[*FulfillResult, error](err), nil
	}

	// Players, timestamp and state are reset before any value moves.
	if err := s.repo.ClearPlayers(ctx, db, round.ID); err != nil {
		return results.OperationResult[*FulfillResult, error]{}, err
	}
	if err := s.repo.UpdateRaffle(ctx, db, round); err != nil {
		return results.OperationResult[*FulfillResult, error]{}, err
	}

	if err := s.ledger.Transfer(ctx, db, prize.Winner, prize.Amount); err != nil {
		if errors.Is(err, payout.ErrPaymentRejected) {
			return results.OperationResult[*FulfillResult, error]{}, fmt.Errorf("%w: %w", raffledomain.ErrTransferFailed, err)
		}
		return results.OperationResult[*FulfillResult, error]{}, fmt.Errorf("failed to transfer prize: %w", err)
	}

	round.SettlePayout()
	if err := s.repo.UpdateRaffle(ctx, db, round); err != nil {
		return results.OperationResult[*FulfillResult, error]{}, err
	}
	if err := s.repo.InsertWinner(ctx, db, &raffledb.Winner{
		RaffleUUID:  round.ID,
		RoundNumber: prize.RoundNumber,
		Winner:      string(prize.Winner),
		Prize:       prize.Amount,
		RequestID:   int64(prize.RequestID),
		ResolvedAt:  now,
	}); err != nil {
		return results.OperationResult[*FulfillResult, error]{}, err
	}

	s.recordRound(ctx, round)
	if s.metrics != nil {
		s.metrics.RecordWinnerPicked(ctx, prize.Amount)
	}

	return results.SuccessResult[*FulfillResult, error](&FulfillResult{
		RaffleID:    round.ID,
		Winner:      prize.Winner,
		WinnerIndex: prize.WinnerIndex,
		Prize:       prize.Amount,
		RequestID:   prize.RequestID,
		RoundNumber: prize.RoundNumber,
		ResolvedAt:  now,
	}), nil
}
