package raffledb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// Repository defines the contract for raffle persistence. Every method accepts
// an optional bun.IDB so callers can run it inside their transaction.
//
// Error semantics:
//   - ErrNotFound: the raffle does not exist
//   - Other errors: infrastructure failures
type Repository interface {
	// GetRaffle loads the round with its players in entry order.
	GetRaffle(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error)

	// GetRaffleForUpdate is GetRaffle holding a row lock until the transaction ends.
	GetRaffleForUpdate(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error)

	// CreateRaffle inserts the round unless it already exists. It reports whether a row was inserted.
	CreateRaffle(ctx context.Context, db bun.IDB, round *raffledomain.Round) (bool, error)

	// UpdateRaffle writes the scalar round state. Players are written separately.
	UpdateRaffle(ctx context.Context, db bun.IDB, round *raffledomain.Round) error

	AddPlayer(ctx context.Context, db bun.IDB, raffleID uuid.UUID, position int, player raffledomain.Address, value int64, at time.Time) error
	ClearPlayers(ctx context.Context, db bun.IDB, raffleID uuid.UUID) error

	InsertWinner(ctx context.Context, db bun.IDB, winner *Winner) error
	// ListWinners returns winners resolved at or after since, newest first.
	ListWinners(ctx context.Context, db bun.IDB, raffleID uuid.UUID, since time.Time, limit int) ([]Winner, error)
}
