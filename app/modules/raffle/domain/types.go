package raffledomain

import (
	"fmt"
	"regexp"
)

// State is the lifecycle state of a round.
type State int

const (
	StateOpen    State = 0
	StateClosing State = 1
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Address identifies a player, the raffle itself or the oracle.
type Address string

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

// Validate reports ErrInvalidAddress for empty or malformed addresses.
func (a Address) Validate() error {
	if !addressPattern.MatchString(string(a)) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, string(a))
	}
	return nil
}

func (a Address) String() string { return string(a) }

// RequestID correlates a randomness request with its fulfillment. Zero means
// no request is outstanding.
type RequestID int64

const (
	// RequestConfirmations is the block depth the coordinator waits before answering.
	RequestConfirmations uint16 = 3
	// NumWords is the number of random values requested per round.
	NumWords uint32 = 1
)

// UpkeepStatus breaks the upkeep predicate into its four conditions.
type UpkeepStatus struct {
	Needed     bool
	IsOpen     bool
	TimePassed bool
	HasPlayers bool
	HasBalance bool
}

// Payout is the transfer owed to a winner after a round resolved.
type Payout struct {
	Winner      Address
	WinnerIndex int
	Amount      int64
	RequestID   RequestID
	RoundNumber int64
}
