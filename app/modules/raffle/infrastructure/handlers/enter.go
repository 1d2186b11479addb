package rafflehandlers

import (
	"context"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/handlerwrapper"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
)

// HandleEnterRequested enters the requesting player into the current round.
func (h *RaffleHandlers) HandleEnterRequested(
	ctx context.Context,
	payload *raffleevents.RaffleEnterRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	res, err := h.service.Enter(ctx, raffledomain.Address(payload.Player), payload.Value)
	if err != nil {
		if !isEntryRejection(err) {
			return nil, err
		}
		h.logger.InfoContext(ctx, "Entry rejected",
			attr.ExtractCorrelationID(ctx),
			attr.String("player", payload.Player),
			attr.Int64("value", payload.Value),
			attr.Error(err),
		)
		return []handlerwrapper.Result{{
			Topic: raffleevents.RaffleEnterFailedV1,
			Payload: &raffleevents.RaffleEnterFailedPayloadV1{
				RaffleID: h.raffle.String(),
				Player:   payload.Player,
				Value:    payload.Value,
				Reason:   err.Error(),
			},
		}}, nil
	}

	return []handlerwrapper.Result{{
		Topic:   raffleevents.RaffleEnteredV1,
		Payload: enteredPayload(res),
	}}, nil
}
