package raffleservice

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

// Enter adds player to the current round for value gwei.
func (s *RaffleService) Enter(ctx context.Context, player raffledomain.Address, value int64) (*EnterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enterTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*EnterResult, error], error) {
		return s.enterLogic(ctx, db, player, value)
	}

	result, err := withTelemetry(s, ctx, "Enter", string(player), func(ctx context.Context) (results.OperationResult[*EnterResult, error], error) {
		return runInTx(s, ctx, enterTx)
	})
	return unwrap(result, err)
}

func (s *RaffleService) enterLogic(ctx context.Context, db bun.IDB, player raffledomain.Address, value int64) (results.OperationResult[*EnterResult, error], error) {
	round, err := s.repo.GetRaffleForUpdate(ctx, db, s.cfg.RaffleID)
	if err != nil {
		return results.OperationResult[*EnterResult, error]{}, fmt.Errorf("failed to load raffle: %w", err)
	}

	if err := round.Enter(player, value); err != nil {
		return results.FailureResult[*EnterResult, error](err), nil
	}

	position := len(round.Players) - 1
	if err := s.repo.AddPlayer(ctx, db, round.ID, position, player, value, s.clock.Now()); err != nil {
		return results.OperationResult[*EnterResult, error]{}, err
	}
	if err := s.repo.UpdateRaffle(ctx, db, round); err != nil {
		return results.OperationResult[*EnterResult, error]{}, err
	}
	s.recordRound(ctx, round)

	return results.SuccessResult[*EnterResult, error](&EnterResult{
		RaffleID:    round.ID,
		Player:      player,
		Value:       value,
		PlayerCount: len(round.Players),
		Pot:         round.Pot,
	}), nil
}
