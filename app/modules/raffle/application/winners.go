package raffleservice

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

const (
	defaultWinnersLimit = 50
	maxWinnersLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultWinnersLimit
	}
	if limit > maxWinnersLimit {
		return maxWinnersLimit
	}
	return limit
}

// ListWinners returns resolved rounds at or after since, newest first.
func (s *RaffleService) ListWinners(ctx context.Context, since time.Time, limit int) ([]WinnerRecord, error) {
	limit = clampLimit(limit)
	listTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]WinnerRecord, error], error) {
		rows, err := s.repo.ListWinners(ctx, db, s.cfg.RaffleID, since, limit)
		if err != nil {
			return results.OperationResult[[]WinnerRecord, error]{}, err
		}
		records := make([]WinnerRecord, 0, len(rows))
		for _, w := range rows {
			records = append(records, WinnerRecord{
				RoundNumber: w.RoundNumber,
				Winner:      raffledomain.Address(w.Winner),
				Prize:       w.Prize,
				RequestID:   raffledomain.RequestID(w.RequestID),
				ResolvedAt:  w.ResolvedAt,
			})
		}
		return results.SuccessResult[[]WinnerRecord, error](records), nil
	}

	result, err := withTelemetry(s, ctx, "ListWinners", s.cfg.RaffleID.String(), func(ctx context.Context) (results.OperationResult[[]WinnerRecord, error], error) {
		return runInTx(s, ctx, listTx)
	})
	return unwrap(result, err)
}
