package raffledomain

import (
	"errors"
	"math"
	"math/big"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fee int64 = 5_000_000_000

var (
	start    = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	interval = 30 * time.Second
)

func newTestRound() *Round {
	return NewRound(uuid.MustParse("6f1c1f8e-3a2b-4c1d-9e0f-123456789abc"), fee, interval, start)
}

func TestRound_Enter(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(r *Round)
		player      Address
		value       int64
		wantErr     error
		wantPlayers int
		wantPot     int64
	}{
		{name: "exact fee", player: "alice", value: fee, wantPlayers: 1, wantPot: fee},
		{name: "overpay keeps full value", player: "alice", value: fee + 7, wantPlayers: 1, wantPot: fee + 7},
		{name: "one below fee", player: "alice", value: fee - 1, wantErr: ErrInsufficientEntranceFee},
		{name: "zero value", player: "alice", value: 0, wantErr: ErrInsufficientEntranceFee},
		{
			name:    "closing round",
			setup:   func(r *Round) { r.State = StateClosing },
			player:  "alice",
			value:   fee,
			wantErr: ErrNotOpen,
		},
		{
			name:    "fee checked before state",
			setup:   func(r *Round) { r.State = StateClosing },
			player:  "alice",
			value:   fee - 1,
			wantErr: ErrInsufficientEntranceFee,
		},
		{
			name:    "pot overflow",
			setup:   func(r *Round) { r.Pot = fee },
			player:  "bob",
			value:   math.MaxInt64,
			wantErr: ErrPotOverflow,
			wantPot: fee,
		},
		{name: "invalid address", player: "bad address!", value: fee, wantErr: ErrInvalidAddress},
		{name: "empty address", player: "", value: fee, wantErr: ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRound()
			if tt.setup != nil {
				tt.setup(r)
			}
			err := r.Enter(tt.player, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, r.Players)
				assert.Equal(t, tt.wantPot, r.Pot)
				return
			}
			require.NoError(t, err)
			assert.Len(t, r.Players, tt.wantPlayers)
			assert.Equal(t, tt.wantPot, r.Pot)
			assert.Equal(t, tt.player, r.Players[len(r.Players)-1])
		})
	}
}

func TestRound_CheckUpkeep(t *testing.T) {
	after := start.Add(interval + time.Second)

	tests := []struct {
		name  string
		setup func(r *Round)
		now   time.Time
		want  UpkeepStatus
	}{
		{
			name: "empty round",
			now:  after,
			want: UpkeepStatus{IsOpen: true, TimePassed: true},
		},
		{
			name:  "eligible",
			setup: func(r *Round) { _ = r.Enter("alice", fee) },
			now:   after,
			want:  UpkeepStatus{Needed: true, IsOpen: true, TimePassed: true, HasPlayers: true, HasBalance: true},
		},
		{
			name:  "interval not strictly exceeded",
			setup: func(r *Round) { _ = r.Enter("alice", fee) },
			now:   start.Add(interval),
			want:  UpkeepStatus{IsOpen: true, HasPlayers: true, HasBalance: true},
		},
		{
			name: "closing",
			setup: func(r *Round) {
				_ = r.Enter("alice", fee)
				r.State = StateClosing
			},
			now:  after,
			want: UpkeepStatus{TimePassed: true, HasPlayers: true, HasBalance: true},
		},
		{
			name: "players but zero pot",
			setup: func(r *Round) {
				r.Players = []Address{"alice"}
			},
			now:  after,
			want: UpkeepStatus{IsOpen: true, TimePassed: true, HasPlayers: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRound()
			if tt.setup != nil {
				tt.setup(r)
			}
			before := *r
			before.Players = slices.Clone(r.Players)

			got := r.CheckUpkeep(tt.now)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CheckUpkeep mismatch (-want +got):\n%s", diff)
			}
			// Repeated checks return the same answer and leave the round alone.
			assert.Equal(t, got, r.CheckUpkeep(tt.now))
			if diff := cmp.Diff(before, *r); diff != "" {
				t.Errorf("CheckUpkeep mutated round (-before +after):\n%s", diff)
			}
		})
	}
}

func TestRound_BeginClosing(t *testing.T) {
	after := start.Add(interval + time.Second)

	t.Run("not needed carries diagnostics", func(t *testing.T) {
		r := newTestRound()
		err := r.BeginClosing(after)
		require.ErrorIs(t, err, ErrUpkeepNotNeeded)

		var notNeeded *UpkeepNotNeededError
		require.True(t, errors.As(err, &notNeeded))
		assert.Equal(t, UpkeepNotNeededError{Pot: 0, PlayerCount: 0, State: StateOpen}, *notNeeded)
		assert.Equal(t, StateOpen, r.State)
	})

	t.Run("needed moves to closing", func(t *testing.T) {
		r := newTestRound()
		require.NoError(t, r.Enter("alice", fee))
		require.NoError(t, r.BeginClosing(after))
		assert.Equal(t, StateClosing, r.State)

		err := r.BeginClosing(after)
		var notNeeded *UpkeepNotNeededError
		require.True(t, errors.As(err, &notNeeded))
		assert.Equal(t, StateClosing, notNeeded.State)
		assert.Equal(t, 1, notNeeded.PlayerCount)
		assert.Equal(t, fee, notNeeded.Pot)
	})
}

func TestRound_RecordRequest(t *testing.T) {
	r := newTestRound()
	assert.ErrorIs(t, r.RecordRequest(1), ErrRequestMismatch)

	require.NoError(t, r.Enter("alice", fee))
	require.NoError(t, r.BeginClosing(start.Add(time.Minute)))
	assert.ErrorIs(t, r.RecordRequest(0), ErrInvalidRequestID)
	require.NoError(t, r.RecordRequest(7))
	assert.Equal(t, RequestID(7), r.PendingRequestID)
	assert.ErrorIs(t, r.RecordRequest(8), ErrRequestMismatch)
}

func closingRound(t *testing.T, players ...Address) *Round {
	t.Helper()
	r := newTestRound()
	for _, p := range players {
		require.NoError(t, r.Enter(p, fee))
	}
	require.NoError(t, r.BeginClosing(start.Add(time.Minute)))
	require.NoError(t, r.RecordRequest(1))
	return r
}

func TestRound_Resolve(t *testing.T) {
	resolvedAt := start.Add(2 * time.Minute)

	tests := []struct {
		name      string
		players   []Address
		id        RequestID
		words     []*big.Int
		wantErr   error
		wantIndex int
	}{
		{name: "single player", players: []Address{"alice"}, id: 1, words: []*big.Int{big.NewInt(42)}, wantIndex: 0},
		{name: "four players", players: []Address{"a", "b", "c", "d"}, id: 1, words: []*big.Int{big.NewInt(42)}, wantIndex: 2},
		{
			name:      "uint256 word",
			players:   []Address{"a", "b", "c"},
			id:        1,
			words:     []*big.Int{new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))},
			wantIndex: 0, // 2^256-1 is divisible by 3
		},
		{name: "mismatched id", players: []Address{"alice"}, id: 2, words: []*big.Int{big.NewInt(1)}, wantErr: ErrRequestMismatch},
		{name: "no words", players: []Address{"alice"}, id: 1, wantErr: ErrNoRandomWords},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := closingRound(t, tt.players...)
			pot := r.Pot

			payout, err := r.Resolve(tt.id, tt.words, resolvedAt)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, StateClosing, r.State)
				assert.Len(t, r.Players, len(tt.players))
				assert.Equal(t, pot, r.Pot)
				assert.Equal(t, RequestID(1), r.PendingRequestID)
				return
			}
			require.NoError(t, err)

			want := Payout{
				Winner:      tt.players[tt.wantIndex],
				WinnerIndex: tt.wantIndex,
				Amount:      pot,
				RequestID:   1,
				RoundNumber: 1,
			}
			if diff := cmp.Diff(want, payout); diff != "" {
				t.Errorf("payout mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, StateOpen, r.State)
			assert.Empty(t, r.Players)
			assert.Equal(t, resolvedAt, r.LastTimestamp)
			assert.Equal(t, want.Winner, r.RecentWinner)
			assert.Zero(t, r.PendingRequestID)
			assert.Equal(t, pot, r.Pot, "pot is kept until the payout settles")

			r.SettlePayout()
			assert.Zero(t, r.Pot)
		})
	}
}

func TestRound_ResolveWithoutPendingRequest(t *testing.T) {
	r := newTestRound()
	require.NoError(t, r.Enter("alice", fee))
	_, err := r.Resolve(0, []*big.Int{big.NewInt(1)}, start)
	assert.ErrorIs(t, err, ErrRequestMismatch)
	assert.Equal(t, StateOpen, r.State)
	assert.Len(t, r.Players, 1)
}

func TestRound_Player(t *testing.T) {
	r := newTestRound()
	require.NoError(t, r.Enter("alice", fee))
	require.NoError(t, r.Enter("bob", fee))

	p, err := r.Player(1)
	require.NoError(t, err)
	assert.Equal(t, Address("bob"), p)

	for _, i := range []int{-1, 2} {
		_, err := r.Player(i)
		assert.ErrorIs(t, err, ErrPlayerIndexOutOfRange)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "CLOSING", StateClosing.String())
	assert.Equal(t, "State(9)", State(9).String())
}
