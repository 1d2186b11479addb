package raffledomain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientEntranceFee   = errors.New("insufficient entrance fee")
	ErrNotOpen                   = errors.New("raffle not open")
	ErrPotOverflow               = errors.New("entry would overflow the pot")
	ErrUpkeepNotNeeded           = errors.New("upkeep not needed")
	ErrTransferFailed            = errors.New("transfer failed")
	ErrOnlyCoordinatorCanFulfill = errors.New("only coordinator can fulfill")
	ErrRequestMismatch           = errors.New("request id does not match pending request")
	ErrNoRandomWords             = errors.New("no random words")
	ErrNoPlayers                 = errors.New("round has no players")
	ErrPlayerIndexOutOfRange     = errors.New("player index out of range")
	ErrInvalidAddress            = errors.New("invalid address")
	ErrInvalidRequestID          = errors.New("invalid request id")
)

// UpkeepNotNeededError carries the values that made the round ineligible.
type UpkeepNotNeededError struct {
	Pot         int64
	PlayerCount int
	State       State
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: pot=%d players=%d state=%s", e.Pot, e.PlayerCount, e.State)
}

// Is lets errors.Is match ErrUpkeepNotNeeded.
func (e *UpkeepNotNeededError) Is(target error) bool {
	return target == ErrUpkeepNotNeeded
}
