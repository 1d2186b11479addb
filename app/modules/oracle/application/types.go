package oracleservice

import (
	"context"
	"math/big"
	"time"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
)

// Config is the coordinator fee schedule and simulated chain timing.
type Config struct {
	Pricing oracledomain.Pricing
	// BlockTime is multiplied by the requested confirmations to delay fulfillment.
	BlockTime time.Duration
}

// Fulfillment describes a delivered answer.
type Fulfillment struct {
	RequestID      int64      `json:"request_id"`
	SubscriptionID int64      `json:"subscription_id"`
	Consumer       string     `json:"consumer"`
	RandomWords    []*big.Int `json:"random_words"`
	Payment        int64      `json:"payment"`
	Balance        int64      `json:"balance"`
	Topic          string     `json:"topic"`
}

// Scheduler arranges for FulfillRandomWords to run at a later time.
type Scheduler interface {
	ScheduleFulfillment(ctx context.Context, requestID int64, at time.Time) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
