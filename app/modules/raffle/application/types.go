package raffleservice

import (
	"time"

	"github.com/google/uuid"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// Config is the construction-time configuration of a raffle. It never changes
// after the raffle row exists.
type Config struct {
	RaffleID         uuid.UUID
	Address          raffledomain.Address
	OracleAddress    raffledomain.Address
	EntranceFee      int64
	Interval         time.Duration
	KeyHash          string
	SubscriptionID   int64
	CallbackGasLimit uint32
}

// Snapshot is every accessor value read in one query.
type Snapshot struct {
	RaffleID             uuid.UUID              `json:"raffle_id"`
	State                raffledomain.State     `json:"state"`
	EntranceFee          int64                  `json:"entrance_fee"`
	Interval             time.Duration          `json:"interval"`
	LastTimestamp        time.Time              `json:"last_timestamp"`
	Players              []raffledomain.Address `json:"players"`
	NumberOfPlayers      int                    `json:"number_of_players"`
	Pot                  int64                  `json:"pot"`
	RecentWinner         raffledomain.Address   `json:"recent_winner,omitempty"`
	PendingRequestID     raffledomain.RequestID `json:"pending_request_id,omitempty"`
	RoundNumber          int64                  `json:"round_number"`
	RequestConfirmations uint16                 `json:"request_confirmations"`
	NumWords             uint32                 `json:"num_words"`
}

type EnterResult struct {
	RaffleID    uuid.UUID
	Player      raffledomain.Address
	Value       int64
	PlayerCount int
	Pot         int64
}

type UpkeepResult struct {
	RaffleID     uuid.UUID
	UpkeepNeeded bool
	Status       raffledomain.UpkeepStatus
	PerformData  []byte
}

type PerformUpkeepResult struct {
	RaffleID  uuid.UUID
	RequestID raffledomain.RequestID
}

type FulfillResult struct {
	RaffleID    uuid.UUID
	Winner      raffledomain.Address
	WinnerIndex int
	Prize       int64
	RequestID   raffledomain.RequestID
	RoundNumber int64
	ResolvedAt  time.Time
}

// WinnerRecord is one entry of the winner history.
type WinnerRecord struct {
	RoundNumber int64
	Winner      raffledomain.Address
	Prize       int64
	RequestID   raffledomain.RequestID
	ResolvedAt  time.Time
}
