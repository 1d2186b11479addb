// Package coordinator connects the raffle to a randomness coordinator.
package coordinator

import (
	"context"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// RandomnessRequester is the request side of the local oracle.
type RandomnessRequester interface {
	RequestRandomWords(ctx context.Context, params oracledomain.RequestParams) (int64, error)
}

// Local forwards raffle requests to an in-process oracle.
type Local struct {
	oracle RandomnessRequester
}

func NewLocal(oracle RandomnessRequester) *Local {
	return &Local{oracle: oracle}
}

func (l *Local) RequestRandomWords(ctx context.Context, req raffleservice.RandomWordsRequest) (raffledomain.RequestID, error) {
	id, err := l.oracle.RequestRandomWords(ctx, oracledomain.RequestParams{
		KeyHash:              req.KeyHash,
		SubscriptionID:       req.SubscriptionID,
		RequestConfirmations: req.RequestConfirmations,
		CallbackGasLimit:     req.CallbackGasLimit,
		NumWords:             req.NumWords,
		Consumer:             req.Consumer.String(),
	})
	if err != nil {
		return 0, err
	}
	return raffledomain.RequestID(id), nil
}

var _ raffleservice.Coordinator = (*Local)(nil)
