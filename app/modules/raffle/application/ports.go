package raffleservice

import (
	"context"
	"time"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// RandomWordsRequest mirrors the coordinator request parameters.
type RandomWordsRequest struct {
	KeyHash              string
	SubscriptionID       int64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	Consumer             raffledomain.Address
}

// Coordinator issues randomness requests. The answer arrives later through
// FulfillRandomWords.
type Coordinator interface {
	RequestRandomWords(ctx context.Context, req RandomWordsRequest) (raffledomain.RequestID, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
