package raffleservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/payout"
	raffledb "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/repositories"
)

// ------------------------
// Fake Raffle Repo
// ------------------------

// FakeRaffleRepo keeps one round in memory unless a Func override is set.
type FakeRaffleRepo struct {
	trace []string

	round   *raffledomain.Round
	winners []raffledb.Winner

	GetRaffleFunc          func(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error)
	GetRaffleForUpdateFunc func(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error)
	UpdateRaffleFunc       func(ctx context.Context, db bun.IDB, round *raffledomain.Round) error
	AddPlayerFunc          func(ctx context.Context, db bun.IDB, raffleID uuid.UUID, position int, player raffledomain.Address, value int64, at time.Time) error
	InsertWinnerFunc       func(ctx context.Context, db bun.IDB, winner *raffledb.Winner) error
	ListWinnersFunc        func(ctx context.Context, db bun.IDB, raffleID uuid.UUID, since time.Time, limit int) ([]raffledb.Winner, error)
}

func NewFakeRaffleRepo() *FakeRaffleRepo {
	return &FakeRaffleRepo{
		trace: []string{},
	}
}

func (f *FakeRaffleRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func cloneRound(r *raffledomain.Round) *raffledomain.Round {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = append([]raffledomain.Address{}, r.Players...)
	return &c
}

func (f *FakeRaffleRepo) load(raffleID uuid.UUID) (*raffledomain.Round, error) {
	if f.round == nil || f.round.ID != raffleID {
		return nil, raffledb.ErrNotFound
	}
	return cloneRound(f.round), nil
}

// --- Repository Interface Implementation ---

func (f *FakeRaffleRepo) GetRaffle(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error) {
	f.record("GetRaffle")
	if f.GetRaffleFunc != nil {
		return f.GetRaffleFunc(ctx, db, raffleID)
	}
	return f.load(raffleID)
}

func (f *FakeRaffleRepo) GetRaffleForUpdate(ctx context.Context, db bun.IDB, raffleID uuid.UUID) (*raffledomain.Round, error) {
	f.record("GetRaffleForUpdate")
	if f.GetRaffleForUpdateFunc != nil {
		return f.GetRaffleForUpdateFunc(ctx, db, raffleID)
	}
	return f.load(raffleID)
}

func (f *FakeRaffleRepo) CreateRaffle(ctx context.Context, db bun.IDB, round *raffledomain.Round) (bool, error) {
	f.record("CreateRaffle")
	if f.round != nil && f.round.ID == round.ID {
		return false, nil
	}
	f.round = cloneRound(round)
	return true, nil
}

func (f *FakeRaffleRepo) UpdateRaffle(ctx context.Context, db bun.IDB, round *raffledomain.Round) error {
	f.record("UpdateRaffle")
	if f.UpdateRaffleFunc != nil {
		return f.UpdateRaffleFunc(ctx, db, round)
	}
	if f.round == nil {
		return raffledb.ErrNotFound
	}
	players := f.round.Players
	f.round = cloneRound(round)
	f.round.Players = players
	return nil
}

func (f *FakeRaffleRepo) AddPlayer(ctx context.Context, db bun.IDB, raffleID uuid.UUID, position int, player raffledomain.Address, value int64, at time.Time) error {
	f.record("AddPlayer")
	if f.AddPlayerFunc != nil {
		return f.AddPlayerFunc(ctx, db, raffleID, position, player, value, at)
	}
	f.round.Players = append(f.round.Players, player)
	return nil
}

func (f *FakeRaffleRepo) ClearPlayers(ctx context.Context, db bun.IDB, raffleID uuid.UUID) error {
	f.record("ClearPlayers")
	f.round.Players = []raffledomain.Address{}
	return nil
}

func (f *FakeRaffleRepo) InsertWinner(ctx context.Context, db bun.IDB, winner *raffledb.Winner) error {
	f.record("InsertWinner")
	if f.InsertWinnerFunc != nil {
		return f.InsertWinnerFunc(ctx, db, winner)
	}
	f.winners = append(f.winners, *winner)
	return nil
}

func (f *FakeRaffleRepo) ListWinners(ctx context.Context, db bun.IDB, raffleID uuid.UUID, since time.Time, limit int) ([]raffledb.Winner, error) {
	f.record("ListWinners")
	if f.ListWinnersFunc != nil {
		return f.ListWinnersFunc(ctx, db, raffleID, since, limit)
	}
	var out []raffledb.Winner
	for i := len(f.winners) - 1; i >= 0 && len(out) < limit; i-- {
		if !f.winners[i].ResolvedAt.Before(since) {
			out = append(out, f.winners[i])
		}
	}
	return out, nil
}

// --- Accessors for assertions ---

func (f *FakeRaffleRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRaffleRepo) Round() *raffledomain.Round {
	return cloneRound(f.round)
}

// Ensure the fake actually satisfies the interface
var _ raffledb.Repository = (*FakeRaffleRepo)(nil)

// ------------------------
// Fake Ledger
// ------------------------

type FakeLedger struct {
	trace    []string
	balances map[raffledomain.Address]int64
	rejects  map[raffledomain.Address]bool

	TransferFunc func(ctx context.Context, db bun.IDB, to raffledomain.Address, amount int64) error
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		trace:    []string{},
		balances: map[raffledomain.Address]int64{},
		rejects:  map[raffledomain.Address]bool{},
	}
}

func (f *FakeLedger) Transfer(ctx context.Context, db bun.IDB, to raffledomain.Address, amount int64) error {
	f.trace = append(f.trace, "Transfer")
	if f.TransferFunc != nil {
		return f.TransferFunc(ctx, db, to, amount)
	}
	if f.rejects[to] {
		return payout.ErrPaymentRejected
	}
	f.balances[to] += amount
	return nil
}

func (f *FakeLedger) Balance(ctx context.Context, db bun.IDB, address raffledomain.Address) (int64, error) {
	f.trace = append(f.trace, "Balance")
	return f.balances[address], nil
}

func (f *FakeLedger) SetRejectsPayments(ctx context.Context, db bun.IDB, address raffledomain.Address, reject bool) error {
	f.trace = append(f.trace, "SetRejectsPayments")
	f.rejects[address] = reject
	return nil
}

func (f *FakeLedger) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ payout.Ledger = (*FakeLedger)(nil)

// ------------------------
// Fake Coordinator
// ------------------------

type FakeCoordinator struct {
	requests []RandomWordsRequest
	nextID   raffledomain.RequestID

	RequestRandomWordsFunc func(ctx context.Context, req RandomWordsRequest) (raffledomain.RequestID, error)
}

func NewFakeCoordinator() *FakeCoordinator {
	return &FakeCoordinator{nextID: 1}
}

func (f *FakeCoordinator) RequestRandomWords(ctx context.Context, req RandomWordsRequest) (raffledomain.RequestID, error) {
	f.requests = append(f.requests, req)
	if f.RequestRandomWordsFunc != nil {
		return f.RequestRandomWordsFunc(ctx, req)
	}
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *FakeCoordinator) Requests() []RandomWordsRequest {
	return append([]RandomWordsRequest(nil), f.requests...)
}

var _ Coordinator = (*FakeCoordinator)(nil)

// ------------------------
// Fake Clock
// ------------------------

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
