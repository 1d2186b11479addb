package raffledb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// Raffle is the persisted scalar state of one raffle round.
type Raffle struct {
	bun.BaseModel    `bun:"table:raffles,alias:r"`
	UUID             uuid.UUID `bun:"uuid,pk,type:uuid"`
	State            int       `bun:"state,notnull"`
	EntranceFee      int64     `bun:"entrance_fee,notnull"`
	IntervalMillis   int64     `bun:"interval_ms,notnull"`
	LastTimestamp    time.Time `bun:"last_timestamp,notnull"`
	Pot              int64     `bun:"pot,notnull"`
	RecentWinner     string    `bun:"recent_winner,nullzero"`
	PendingRequestID int64     `bun:"pending_request_id,notnull"`
	RoundNumber      int64     `bun:"round_number,notnull"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Player is one entry of the current round. Position is the insertion index.
type Player struct {
	bun.BaseModel `bun:"table:raffle_players,alias:rp"`
	RaffleUUID    uuid.UUID `bun:"raffle_uuid,pk,type:uuid"`
	Position      int       `bun:"position,pk"`
	Address       string    `bun:"address,notnull"`
	Value         int64     `bun:"value,notnull"`
	EnteredAt     time.Time `bun:"entered_at,notnull"`
}

// Winner records a resolved round.
type Winner struct {
	bun.BaseModel `bun:"table:raffle_winners,alias:rw"`
	ID            int64     `bun:"id,pk,autoincrement"`
	RaffleUUID    uuid.UUID `bun:"raffle_uuid,type:uuid,notnull"`
	RoundNumber   int64     `bun:"round_number,notnull"`
	Winner        string    `bun:"winner,notnull"`
	Prize         int64     `bun:"prize,notnull"`
	RequestID     int64     `bun:"request_id,notnull"`
	ResolvedAt    time.Time `bun:"resolved_at,notnull"`
}

func fromDomain(round *raffledomain.Round) *Raffle {
	return &Raffle{
		UUID:             round.ID,
		State:            int(round.State),
		EntranceFee:      round.EntranceFee,
		IntervalMillis:   round.Interval.Milliseconds(),
		LastTimestamp:    round.LastTimestamp,
		Pot:              round.Pot,
		RecentWinner:     string(round.RecentWinner),
		PendingRequestID: int64(round.PendingRequestID),
		RoundNumber:      round.RoundNumber,
	}
}

func (r *Raffle) toDomain(players []Player) *raffledomain.Round {
	addrs := make([]raffledomain.Address, len(players))
	for i, p := range players {
		addrs[i] = raffledomain.Address(p.Address)
	}
	return &raffledomain.Round{
		ID:               r.UUID,
		State:            raffledomain.State(r.State),
		EntranceFee:      r.EntranceFee,
		Interval:         time.Duration(r.IntervalMillis) * time.Millisecond,
		LastTimestamp:    r.LastTimestamp,
		Players:          addrs,
		Pot:              r.Pot,
		RecentWinner:     raffledomain.Address(r.RecentWinner),
		PendingRequestID: raffledomain.RequestID(r.PendingRequestID),
		RoundNumber:      r.RoundNumber,
	}
}
