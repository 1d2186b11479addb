// Package raffleevents defines the raffle topics and payloads.
package raffleevents

import "time"

const (
	// RaffleEnterRequestedV1 asks the raffle to accept an entry.
	RaffleEnterRequestedV1 = "raffle.enter.requested.v1"
	// RaffleEnteredV1 is emitted for every accepted entry (RaffleEnter).
	RaffleEnteredV1 = "raffle.entered.v1"
	// RaffleEnterFailedV1 is emitted when an entry request is rejected.
	RaffleEnterFailedV1 = "raffle.enter.failed.v1"
	// RaffleWinnerRequestedV1 is emitted when upkeep issued a randomness request (RequestedRaffleWinner).
	RaffleWinnerRequestedV1 = "raffle.winner.requested.v1"
	// RaffleWinnerPickedV1 is emitted when a round resolved and the pot was paid (WinnerPicked).
	RaffleWinnerPickedV1 = "raffle.winner.picked.v1"
	// RaffleFulfillmentFailedV1 is emitted when a fulfillment was rejected or could not pay out.
	RaffleFulfillmentFailedV1 = "raffle.fulfillment.failed.v1"
)

// StreamName is the JetStream stream holding every raffle subject.
const StreamName = "raffle"

// StreamSubjects lists the subjects captured by StreamName.
var StreamSubjects = []string{"raffle.>"}

// RaffleEnterRequestedPayloadV1 requests an entry for Player paying Value gwei.
type RaffleEnterRequestedPayloadV1 struct {
	Player string `json:"player"`
	Value  int64  `json:"value"`
}

// RaffleEnteredPayloadV1 describes an accepted entry.
type RaffleEnteredPayloadV1 struct {
	RaffleID    string `json:"raffle_id"`
	Player      string `json:"player"`
	Value       int64  `json:"value"`
	PlayerCount int    `json:"player_count"`
	Pot         int64  `json:"pot"`
}

// RaffleEnterFailedPayloadV1 describes a rejected entry.
type RaffleEnterFailedPayloadV1 struct {
	RaffleID string `json:"raffle_id"`
	Player   string `json:"player"`
	Value    int64  `json:"value"`
	Reason   string `json:"reason"`
}

// RaffleWinnerRequestedPayloadV1 carries the pending randomness request id.
type RaffleWinnerRequestedPayloadV1 struct {
	RaffleID  string `json:"raffle_id"`
	RequestID int64  `json:"request_id"`
}

// RaffleWinnerPickedPayloadV1 describes a resolved round.
type RaffleWinnerPickedPayloadV1 struct {
	RaffleID    string    `json:"raffle_id"`
	Winner      string    `json:"winner"`
	Prize       int64     `json:"prize"`
	RequestID   int64     `json:"request_id"`
	RoundNumber int64     `json:"round_number"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// RaffleFulfillmentFailedPayloadV1 describes a rejected or failed fulfillment.
type RaffleFulfillmentFailedPayloadV1 struct {
	RaffleID  string `json:"raffle_id"`
	RequestID int64  `json:"request_id"`
	Reason    string `json:"reason"`
}
