package oracleservice

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	oracledb "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/pkg/eventbus"
	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

func (s *OracleService) RequestRandomWords(ctx context.Context, params oracledomain.RequestParams) (int64, error) {
	req, err := unwrap(withTelemetry(s, ctx, "RequestRandomWords", params.Consumer, func(ctx context.Context) (results.OperationResult[*oracledomain.Request, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*oracledomain.Request, error], error) {
			return s.requestLogic(ctx, db, params)
		})
	}))
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.RecordRequest(ctx, req.SubscriptionID)
	}
	s.publishRequested(ctx, req)
	return req.ID, nil
}

func (s *OracleService) requestLogic(ctx context.Context, db bun.IDB, params oracledomain.RequestParams) (results.OperationResult[*oracledomain.Request, error], error) {
	sub, err := s.repo.GetSubscriptionForUpdate(ctx, db, params.SubscriptionID)
	if err != nil && !errors.Is(err, oracledb.ErrSubscriptionNotFound) {
		return results.OperationResult[*oracledomain.Request, error]{}, err
	}
	if err := params.Validate(sub); err != nil {
		return results.FailureResult[*oracledomain.Request, error](err), nil
	}

	now := s.clock.Now()
	req := &oracledomain.Request{
		SubscriptionID:       params.SubscriptionID,
		Consumer:             params.Consumer,
		KeyHash:              params.KeyHash,
		RequestConfirmations: params.RequestConfirmations,
		CallbackGasLimit:     params.CallbackGasLimit,
		NumWords:             params.NumWords,
		CreatedAt:            now,
		FulfillAfter:         now.Add(time.Duration(params.RequestConfirmations) * s.cfg.BlockTime),
	}
	id, err := s.repo.InsertRequest(ctx, db, req)
	if err != nil {
		return results.OperationResult[*oracledomain.Request, error]{}, err
	}
	req.ID = id

	sub.RequestCount++
	if err := s.repo.UpdateSubscription(ctx, db, sub); err != nil {
		return results.OperationResult[*oracledomain.Request, error]{}, err
	}

	// Scheduling failure rolls the request back; the caller sees the error.
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleFulfillment(ctx, id, req.FulfillAfter); err != nil {
			return results.OperationResult[*oracledomain.Request, error]{}, err
		}
	}

	s.logger.InfoContext(ctx, "Randomness request accepted",
		attr.ExtractCorrelationID(ctx),
		attr.Int64("request_id", id),
		attr.Int64("subscription_id", params.SubscriptionID),
		attr.String("consumer", params.Consumer),
		attr.Time("fulfill_after", req.FulfillAfter),
	)
	return results.SuccessResult[*oracledomain.Request, error](req), nil
}

// publishRequested announces an accepted request. The request is already
// committed, so a publish error is only logged.
func (s *OracleService) publishRequested(ctx context.Context, req *oracledomain.Request) {
	if s.publisher == nil {
		return
	}
	err := eventbus.PublishPayload(ctx, s.publisher, s.helpers, oracleevents.RandomWordsRequestedV1, &oracleevents.RandomWordsRequestedPayloadV1{
		RequestID:            req.ID,
		SubscriptionID:       req.SubscriptionID,
		Consumer:             req.Consumer,
		KeyHash:              req.KeyHash,
		RequestConfirmations: req.RequestConfirmations,
		CallbackGasLimit:     req.CallbackGasLimit,
		NumWords:             req.NumWords,
		FulfillAfter:         req.FulfillAfter,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish randomness request event",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("request_id", req.ID),
			attr.Error(err),
		)
	}
}

func (s *OracleService) ListRequests(ctx context.Context, limit int) ([]*oracledomain.Request, error) {
	return unwrap(withTelemetry(s, ctx, "ListRequests", strconv.Itoa(limit), func(ctx context.Context) (results.OperationResult[[]*oracledomain.Request, error], error) {
		reqs, err := s.repo.ListRequests(ctx, nil, limit)
		if err != nil {
			return results.OperationResult[[]*oracledomain.Request, error]{}, err
		}
		return results.SuccessResult[[]*oracledomain.Request, error](reqs), nil
	}))
}
