package oracleservice

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/uptrace/bun"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	oracledb "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/pkg/eventbus"
	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

func (s *OracleService) FulfillRandomWords(ctx context.Context, requestID int64) (*Fulfillment, error) {
	f, err := unwrap(withTelemetry(s, ctx, "FulfillRandomWords", strconv.FormatInt(requestID, 10), func(ctx context.Context) (results.OperationResult[*Fulfillment, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*Fulfillment, error], error) {
			return s.fulfillLogic(ctx, db, requestID)
		})
	}))
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordFulfillment(ctx, f.SubscriptionID, f.Payment)
		s.metrics.RecordSubscriptionBalance(ctx, f.SubscriptionID, f.Balance)
	}
	return f, nil
}

// fulfillLogic charges, deletes and delivers inside one transaction. A delivery
// error rolls the charge back so the request can be fulfilled again.
func (s *OracleService) fulfillLogic(ctx context.Context, db bun.IDB, requestID int64) (results.OperationResult[*Fulfillment, error], error) {
	req, err := s.repo.GetRequestForUpdate(ctx, db, requestID)
	if errors.Is(err, oracledb.ErrRequestNotFound) {
		return results.FailureResult[*Fulfillment, error](oracledomain.ErrNonexistentRequest), nil
	}
	if err != nil {
		return results.OperationResult[*Fulfillment, error]{}, err
	}

	sub, failure, err := s.lockSubscription(ctx, db, req.SubscriptionID)
	if err != nil || failure != nil {
		return results.FailureResultOrError[*Fulfillment](failure, err)
	}

	payment := s.cfg.Pricing.Payment()
	if err := sub.Charge(payment); err != nil {
		return results.FailureResult[*Fulfillment, error](err), nil
	}
	if err := s.repo.UpdateSubscription(ctx, db, sub); err != nil {
		return results.OperationResult[*Fulfillment, error]{}, err
	}
	if err := s.repo.DeleteRequest(ctx, db, req.ID); err != nil {
		return results.OperationResult[*Fulfillment, error]{}, err
	}

	words := oracledomain.DeriveWords(req.ID, req.NumWords)
	topic, err := s.deliver(ctx, req, words)
	if err != nil {
		return results.OperationResult[*Fulfillment, error]{}, err
	}

	s.logger.InfoContext(ctx, "Randomness request fulfilled",
		attr.ExtractCorrelationID(ctx),
		attr.Int64("request_id", req.ID),
		attr.String("consumer", req.Consumer),
		attr.Int64("payment", payment),
		attr.Int64("balance", sub.Balance),
	)

	return results.SuccessResult[*Fulfillment, error](&Fulfillment{
		RequestID:      req.ID,
		SubscriptionID: sub.ID,
		Consumer:       req.Consumer,
		RandomWords:    words,
		Payment:        payment,
		Balance:        sub.Balance,
		Topic:          topic,
	}), nil
}

// deliver signs the words and publishes them on the consumer's scoped topic.
func (s *OracleService) deliver(ctx context.Context, req *oracledomain.Request, words []*big.Int) (string, error) {
	payload := &oracleevents.RandomWordsFulfilledPayloadV1{
		RequestID:   req.ID,
		Consumer:    req.Consumer,
		RandomWords: oracledomain.EncodeWords(words),
		Oracle:      s.signer.PublicKey(),
	}
	sig, err := s.signer.Sign(payload.SigningBytes())
	if err != nil {
		return "", err
	}
	payload.Signature = sig

	topic := eventbus.FormatScopedTopic(oracleevents.RandomWordsFulfilledV1, req.Consumer)
	if s.publisher == nil {
		return topic, nil
	}

	msg, err := s.helpers.CreateNewMessage(payload, topic)
	if err != nil {
		return "", err
	}
	if id := attr.CorrelationIDFromContext(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	if err := eventbus.PublishScoped(s.publisher, oracleevents.RandomWordsFulfilledV1, req.Consumer, msg); err != nil {
		return "", fmt.Errorf("failed to deliver fulfillment: %w", err)
	}
	return topic, nil
}
