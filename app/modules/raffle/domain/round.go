// Package raffledomain holds the raffle round state machine. A Round moves
// OPEN -> CLOSING when upkeep is performed and back to OPEN when the pending
// randomness request is fulfilled. Nothing here performs I/O.
package raffledomain

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Round is the singleton lottery state of one raffle instance.
type Round struct {
	ID               uuid.UUID
	State            State
	EntranceFee      int64
	Interval         time.Duration
	LastTimestamp    time.Time
	Players          []Address
	Pot              int64
	RecentWinner     Address
	PendingRequestID RequestID
	// RoundNumber counts resolved rounds.
	RoundNumber int64
}

// NewRound returns an open, empty round started at now.
func NewRound(id uuid.UUID, entranceFee int64, interval time.Duration, now time.Time) *Round {
	return &Round{
		ID:            id,
		State:         StateOpen,
		EntranceFee:   entranceFee,
		Interval:      interval,
		LastTimestamp: now,
		Players:       []Address{},
	}
}

// Enter appends player and adds value to the pot. The fee is checked before the
// state and nothing changes on failure.
func (r *Round) Enter(player Address, value int64) error {
	if err := player.Validate(); err != nil {
		return err
	}
	if value < r.EntranceFee {
		return fmt.Errorf("%w: sent %d, need %d", ErrInsufficientEntranceFee, value, r.EntranceFee)
	}
	if r.State != StateOpen {
		return ErrNotOpen
	}
	if value > math.MaxInt64-r.Pot {
		return fmt.Errorf("%w: pot %d, value %d", ErrPotOverflow, r.Pot, value)
	}
	r.Players = append(r.Players, player)
	r.Pot += value
	return nil
}

// CheckUpkeep evaluates the close predicate at now without mutating r.
func (r *Round) CheckUpkeep(now time.Time) UpkeepStatus {
	s := UpkeepStatus{
		IsOpen:     r.State == StateOpen,
		TimePassed: now.Sub(r.LastTimestamp) > r.Interval,
		HasPlayers: len(r.Players) > 0,
		HasBalance: r.Pot > 0,
	}
	s.Needed = s.IsOpen && s.TimePassed && s.HasPlayers && s.HasBalance
	return s
}

// BeginClosing re-evaluates the predicate and moves the round to CLOSING.
func (r *Round) BeginClosing(now time.Time) error {
	if !r.CheckUpkeep(now).Needed {
		return &UpkeepNotNeededError{
			Pot:         r.Pot,
			PlayerCount: len(r.Players),
			State:       r.State,
		}
	}
	r.State = StateClosing
	return nil
}

// RecordRequest stores the coordinator's request id as the only pending request.
func (r *Round) RecordRequest(id RequestID) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRequestID, id)
	}
	if r.State != StateClosing || r.PendingRequestID != 0 {
		return fmt.Errorf("%w: round is %s with pending request %d", ErrRequestMismatch, r.State, r.PendingRequestID)
	}
	r.PendingRequestID = id
	return nil
}

// Resolve selects the winner for the pending request and resets the round.
// The pot is kept so the caller can transfer it and then call SettlePayout.
func (r *Round) Resolve(id RequestID, words []*big.Int, now time.Time) (Payout, error) {
	if r.PendingRequestID == 0 || id != r.PendingRequestID {
		return Payout{}, fmt.Errorf("%w: got %d, pending %d", ErrRequestMismatch, id, r.PendingRequestID)
	}
	if len(words) == 0 || words[0] == nil {
		return Payout{}, ErrNoRandomWords
	}
	if len(r.Players) == 0 {
		return Payout{}, ErrNoPlayers
	}

	idx := WinnerIndex(words[0], len(r.Players))
	winner := r.Players[idx]

	r.RecentWinner = winner
	r.Players = []Address{}
	r.LastTimestamp = now
	r.State = StateOpen
	r.PendingRequestID = 0
	r.RoundNumber++

	return Payout{
		Winner:      winner,
		WinnerIndex: idx,
		Amount:      r.Pot,
		RequestID:   id,
		RoundNumber: r.RoundNumber,
	}, nil
}

// SettlePayout zeroes the pot once the transfer went through.
func (r *Round) SettlePayout() {
	r.Pot = 0
}

// Player returns the player at index i.
func (r *Round) Player(i int) (Address, error) {
	if i < 0 || i >= len(r.Players) {
		return "", fmt.Errorf("%w: %d of %d", ErrPlayerIndexOutOfRange, i, len(r.Players))
	}
	return r.Players[i], nil
}

// WinnerIndex reduces word modulo n. n must be positive.
func WinnerIndex(word *big.Int, n int) int {
	m := new(big.Int).Mod(word, big.NewInt(int64(n)))
	return int(m.Int64())
}
