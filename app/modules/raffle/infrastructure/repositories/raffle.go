package raffledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// ErrNotFound is returned when a raffle is not found.
var ErrNotFound = errors.New("raffle not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new raffle repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetRaffle(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error) {
	return r.getRaffle(ctx, r.resolveDB(db), raffleID, false)
}

func (r *Impl) GetRaffleForUpdate(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error) {
	return r.getRaffle(ctx, r.resolveDB(db), raffleID, true)
}

func (r *Impl) getRaffle(ctx context.Context, db bun.IDB, raffleID uuid.UUID, lock bool) (*raffledomain.Round, error) {
	raffle := new(Raffle)
	q := db.NewSelect().
		Model(raffle).
		Where("uuid = ?", raffleID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}

	var players []Player
	err := db.NewSelect().
		Model(&players).
		Where("raffle_uuid = ?", raffleID).
		Order("position ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get raffle players: %w", err)
	}

	return raffle.toDomain(players), nil
}

func (r *Impl) CreateRaffle(ctx context.Context, db bun.IDB, round *raffledomain.Round) (bool, error) {
	db = r.resolveDB(db)
	result, err := db.NewInsert().
		Model(fromDomain(round)).
		On("CONFLICT (uuid) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to create raffle: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *Impl) UpdateRaffle(ctx context.Context, db bun.IDB, round *raffledomain.Round) error {
	db = r.resolveDB(db)
	model := fromDomain(round)
	model.UpdatedAt = time.Now()
	result, err := db.NewUpdate().
		Model(model).
		Column("state", "last_timestamp", "pot", "recent_winner", "pending_request_id", "round_number", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update raffle: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) AddPlayer(ctx context.Context, db bun.IDB, raffleID uuid.UUID, position int, player raffledomain.Address, value int64, at time.Time) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&Player{
			RaffleUUID: raffleID,
			Position:   position,
			Address:    string(player),
			Value:      value,
			EnteredAt:  at,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add player: %w", err)
	}
	return nil
}

func (r *Impl) ClearPlayers(ctx context.Context, db bun.IDB, raffleID uuid.UUID) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Player)(nil)).
		Where("raffle_uuid = ?", raffleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear players: %w", err)
	}
	return nil
}

func (r *Impl) InsertWinner(ctx context.Context, db bun.IDB, winner *Winner) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(winner).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert winner: %w", err)
	}
	return nil
}

func (r *Impl) ListWinners(ctx context.Context, db bun.IDB, raffleID uuid.UUID, since time.Time, limit int) ([]Winner, error) {
	db = r.resolveDB(db)
	var winners []Winner
	q := db.NewSelect().
		Model(&winners).
		Where("raffle_uuid = ?", raffleID).
		OrderExpr("resolved_at DESC, id DESC")
	if !since.IsZero() {
		q = q.Where("resolved_at >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	return winners, nil
}
