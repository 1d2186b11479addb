package raffleservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	raffledb "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

// Initialize creates the raffle row on first start. An existing raffle keeps
// its stored entrance fee and interval.
func (s *RaffleService) Initialize(ctx context.Context) (*Snapshot, error) {
	if err := s.cfg.Address.Validate(); err != nil {
		return nil, fmt.Errorf("raffle address: %w", err)
	}
	if err := s.cfg.OracleAddress.Validate(); err != nil {
		return nil, fmt.Errorf("oracle address: %w", err)
	}
	if s.cfg.EntranceFee < 0 || s.cfg.Interval < 0 {
		return nil, fmt.Errorf("entrance fee and interval must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	initTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*raffledomain.Round, error], error) {
		created, err := s.repo.CreateRaffle(ctx, db, raffledomain.NewRound(s.cfg.RaffleID, s.cfg.EntranceFee, s.cfg.Interval, s.clock.Now()))
		if err != nil {
			return results.OperationResult[*raffledomain.Round, error]{}, err
		}
		round, err := s.repo.GetRaffle(ctx, db, s.cfg.RaffleID)
		if err != nil {
			return results.OperationResult[*raffledomain.Round, error]{}, fmt.Errorf("failed to load raffle: %w", err)
		}
		if !created && (round.EntranceFee != s.cfg.EntranceFee || round.Interval != s.cfg.Interval) {
			s.logger.WarnContext(ctx, "Stored raffle differs from configuration, keeping stored values",
				attr.Int64("stored_entrance_fee", round.EntranceFee),
				attr.Int64("configured_entrance_fee", s.cfg.EntranceFee),
				attr.Duration("stored_interval", round.Interval),
				attr.Duration("configured_interval", s.cfg.Interval),
			)
		}
		return results.SuccessResult[*raffledomain.Round, error](round), nil
	}

	result, err := withTelemetry(s, ctx, "Initialize", s.cfg.RaffleID.String(), func(ctx context.Context) (results.OperationResult[*raffledomain.Round, error], error) {
		return runInTx(s, ctx, initTx)
	})
	round, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	s.recordRound(ctx, round)
	return snapshotOf(round), nil
}

func (s *RaffleService) readRound(ctx context.Context, operationName string) (*raffledomain.Round, error) {
	readTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*raffledomain.Round, error], error) {
		round, err := s.repo.GetRaffle(ctx, db, s.cfg.RaffleID)
		if err != nil {
			if errors.Is(err, raffledb.ErrNotFound) {
				return results.FailureResult[*raffledomain.Round, error](err), nil
			}
			return results.OperationResult[*raffledomain.Round, error]{}, fmt.Errorf("failed to load raffle: %w", err)
		}
		return results.SuccessResult[*raffledomain.Round, error](round), nil
	}

	result, err := withTelemetry(s, ctx, operationName, s.cfg.RaffleID.String(), func(ctx context.Context) (results.OperationResult[*raffledomain.Round, error], error) {
		return runInTx(s, ctx, readTx)
	})
	return unwrap(result, err)
}

func snapshotOf(round *raffledomain.Round) *Snapshot {
	players := make([]raffledomain.Address, len(round.Players))
	copy(players, round.Players)
	return &Snapshot{
		RaffleID:             round.ID,
		State:                round.State,
		EntranceFee:          round.EntranceFee,
		Interval:             round.Interval,
		LastTimestamp:        round.LastTimestamp,
		Players:              players,
		NumberOfPlayers:      len(players),
		Pot:                  round.Pot,
		RecentWinner:         round.RecentWinner,
		PendingRequestID:     round.PendingRequestID,
		RoundNumber:          round.RoundNumber,
		RequestConfirmations: raffledomain.RequestConfirmations,
		NumWords:             raffledomain.NumWords,
	}
}

func (s *RaffleService) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	round, err := s.readRound(ctx, "GetSnapshot")
	if err != nil {
		return nil, err
	}
	return snapshotOf(round), nil
}

func (s *RaffleService) GetEntranceFee(ctx context.Context) (int64, error) {
	round, err := s.readRound(ctx, "GetEntranceFee")
	if err != nil {
		return 0, err
	}
	return round.EntranceFee, nil
}

func (s *RaffleService) GetRaffleState(ctx context.Context) (raffledomain.State, error) {
	round, err := s.readRound(ctx, "GetRaffleState")
	if err != nil {
		return 0, err
	}
	return round.State, nil
}

func (s *RaffleService) GetInterval(ctx context.Context) (time.Duration, error) {
	round, err := s.readRound(ctx, "GetInterval")
	if err != nil {
		return 0, err
	}
	return round.Interval, nil
}

func (s *RaffleService) GetNumberOfPlayers(ctx context.Context) (int, error) {
	round, err := s.readRound(ctx, "GetNumberOfPlayers")
	if err != nil {
		return 0, err
	}
	return len(round.Players), nil
}

func (s *RaffleService) GetPlayer(ctx context.Context, index int) (raffledomain.Address, error) {
	round, err := s.readRound(ctx, "GetPlayer")
	if err != nil {
		return "", err
	}
	return round.Player(index)
}

func (s *RaffleService) GetRecentWinner(ctx context.Context) (raffledomain.Address, error) {
	round, err := s.readRound(ctx, "GetRecentWinner")
	if err != nil {
		return "", err
	}
	return round.RecentWinner, nil
}

func (s *RaffleService) GetLatestTimestamp(ctx context.Context) (time.Time, error) {
	round, err := s.readRound(ctx, "GetLatestTimestamp")
	if err != nil {
		return time.Time{}, err
	}
	return round.LastTimestamp, nil
}

func (s *RaffleService) GetRequestConfirmations() uint16 {
	return raffledomain.RequestConfirmations
}

func (s *RaffleService) GetNumWords() uint32 {
	return raffledomain.NumWords
}

// GetBalance returns the prize balance credited to address.
func (s *RaffleService) GetBalance(ctx context.Context, address raffledomain.Address) (int64, error) {
	if err := address.Validate(); err != nil {
		return 0, err
	}
	result, err := withTelemetry(s, ctx, "GetBalance", string(address), func(ctx context.Context) (results.OperationResult[int64, error], error) {
		balance, err := s.ledger.Balance(ctx, nil, address)
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](balance), nil
	})
	return unwrap(result, err)
}
