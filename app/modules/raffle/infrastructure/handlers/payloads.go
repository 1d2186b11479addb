package rafflehandlers

import (
	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
)

func enteredPayload(res *raffleservice.EnterResult) *raffleevents.RaffleEnteredPayloadV1 {
	return &raffleevents.RaffleEnteredPayloadV1{
		RaffleID:    res.RaffleID.String(),
		Player:      string(res.Player),
		Value:       res.Value,
		PlayerCount: res.PlayerCount,
		Pot:         res.Pot,
	}
}

func winnerRequestedPayload(res *raffleservice.PerformUpkeepResult) *raffleevents.RaffleWinnerRequestedPayloadV1 {
	return &raffleevents.RaffleWinnerRequestedPayloadV1{
		RaffleID:  res.RaffleID.String(),
		RequestID: int64(res.RequestID),
	}
}

func winnerPickedPayload(res *raffleservice.FulfillResult) *raffleevents.RaffleWinnerPickedPayloadV1 {
	return &raffleevents.RaffleWinnerPickedPayloadV1{
		RaffleID:    res.RaffleID.String(),
		Winner:      string(res.Winner),
		Prize:       res.Prize,
		RequestID:   int64(res.RequestID),
		RoundNumber: res.RoundNumber,
		ResolvedAt:  res.ResolvedAt,
	}
}
