package rafflehandlers

import (
	"context"

	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/handlerwrapper"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
)

// HandleRandomWordsFulfilled resolves the round from a signed oracle delivery.
// Rejected deliveries are acknowledged and reported; infrastructure errors are
// returned so the message is redelivered.
func (h *RaffleHandlers) HandleRandomWordsFulfilled(
	ctx context.Context,
	payload *oracleevents.RandomWordsFulfilledPayloadV1,
) ([]handlerwrapper.Result, error) {
	res, err := fulfillSigned(ctx, h.service, h.address, payload)
	if err != nil {
		if !isFulfillmentRejection(err) {
			return nil, err
		}
		h.logger.WarnContext(ctx, "Fulfillment rejected",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("request_id", payload.RequestID),
			attr.String("oracle", payload.Oracle),
			attr.Error(err),
		)
		return []handlerwrapper.Result{{
			Topic: raffleevents.RaffleFulfillmentFailedV1,
			Payload: &raffleevents.RaffleFulfillmentFailedPayloadV1{
				RaffleID:  h.raffle.String(),
				RequestID: payload.RequestID,
				Reason:    err.Error(),
			},
		}}, nil
	}

	h.logger.InfoContext(ctx, "Winner picked",
		attr.ExtractCorrelationID(ctx),
		attr.String("winner", string(res.Winner)),
		attr.Int64("prize", res.Prize),
		attr.Int64("round", res.RoundNumber),
	)
	return []handlerwrapper.Result{{
		Topic:   raffleevents.RaffleWinnerPickedV1,
		Payload: winnerPickedPayload(res),
	}}, nil
}
