package rafflehandlers

import (
	"context"

	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/handlerwrapper"
)

// Handlers consumes raffle commands and oracle deliveries from the event bus.
type Handlers interface {
	HandleEnterRequested(ctx context.Context, payload *raffleevents.RaffleEnterRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleRandomWordsFulfilled(ctx context.Context, payload *oracleevents.RandomWordsFulfilledPayloadV1) ([]handlerwrapper.Result, error)
}
