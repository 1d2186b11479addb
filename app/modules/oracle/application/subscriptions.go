package oracleservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/uptrace/bun"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	oracledb "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

func (s *OracleService) CreateSubscription(ctx context.Context, owner string) (int64, error) {
	return unwrap(withTelemetry(s, ctx, "CreateSubscription", owner, func(ctx context.Context) (results.OperationResult[int64, error], error) {
		if owner == "" {
			return results.FailureResult[int64, error](oracledomain.ErrMustBeSubOwner), nil
		}
		id, err := s.repo.CreateSubscription(ctx, nil, owner, s.clock.Now())
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		s.logger.InfoContext(ctx, "Subscription created",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("subscription_id", id),
			attr.String("owner", owner),
		)
		return results.SuccessResult[int64, error](id), nil
	}))
}

func (s *OracleService) FundSubscription(ctx context.Context, subID int64, amount int64) (*oracledomain.Subscription, error) {
	return unwrap(withTelemetry(s, ctx, "FundSubscription", strconv.FormatInt(subID, 10), func(ctx context.Context) (results.OperationResult[*oracledomain.Subscription, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*oracledomain.Subscription, error], error) {
			return s.fund(ctx, db, subID, amount)
		})
	}))
}

func (s *OracleService) fund(ctx context.Context, db bun.IDB, subID int64, amount int64) (results.OperationResult[*oracledomain.Subscription, error], error) {
	sub, failure, err := s.lockSubscription(ctx, db, subID)
	if err != nil || failure != nil {
		return results.FailureResultOrError[*oracledomain.Subscription](failure, err)
	}
	if err := sub.Fund(amount); err != nil {
		return results.FailureResult[*oracledomain.Subscription, error](err), nil
	}
	if err := s.repo.UpdateSubscription(ctx, db, sub); err != nil {
		return results.OperationResult[*oracledomain.Subscription, error]{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordSubscriptionBalance(ctx, sub.ID, sub.Balance)
	}
	return results.SuccessResult[*oracledomain.Subscription, error](sub), nil
}

func (s *OracleService) AddConsumer(ctx context.Context, subID int64, caller, consumer string) error {
	_, err := unwrap(withTelemetry(s, ctx, "AddConsumer", consumer, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			return s.addConsumer(ctx, db, subID, caller, consumer)
		})
	}))
	return err
}

func (s *OracleService) addConsumer(ctx context.Context, db bun.IDB, subID int64, caller, consumer string) (results.OperationResult[struct{}, error], error) {
	sub, failure, err := s.lockSubscription(ctx, db, subID)
	if err != nil || failure != nil {
		return results.FailureResultOrError[struct{}](failure, err)
	}
	if sub.Owner != caller {
		return results.FailureResult[struct{}, error](oracledomain.ErrMustBeSubOwner), nil
	}
	if err := sub.AddConsumer(consumer); err != nil {
		return results.FailureResult[struct{}, error](err), nil
	}
	if err := s.repo.AddConsumer(ctx, db, subID, consumer, s.clock.Now()); err != nil {
		return results.OperationResult[struct{}, error]{}, err
	}
	return results.SuccessResult[struct{}, error](struct{}{}), nil
}

func (s *OracleService) RemoveConsumer(ctx context.Context, subID int64, caller, consumer string) error {
	_, err := unwrap(withTelemetry(s, ctx, "RemoveConsumer", consumer, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			sub, failure, err := s.lockSubscription(ctx, db, subID)
			if err != nil || failure != nil {
				return results.FailureResultOrError[struct{}](failure, err)
			}
			if sub.Owner != caller {
				return results.FailureResult[struct{}, error](oracledomain.ErrMustBeSubOwner), nil
			}
			if err := sub.RemoveConsumer(consumer); err != nil {
				return results.FailureResult[struct{}, error](err), nil
			}
			if err := s.repo.RemoveConsumer(ctx, db, subID, consumer); err != nil {
				return results.OperationResult[struct{}, error]{}, err
			}
			return results.SuccessResult[struct{}, error](struct{}{}), nil
		})
	}))
	return err
}

func (s *OracleService) GetSubscription(ctx context.Context, subID int64) (*oracledomain.Subscription, error) {
	return unwrap(withTelemetry(s, ctx, "GetSubscription", strconv.FormatInt(subID, 10), func(ctx context.Context) (results.OperationResult[*oracledomain.Subscription, error], error) {
		sub, err := s.repo.GetSubscription(ctx, nil, subID)
		if errors.Is(err, oracledb.ErrSubscriptionNotFound) {
			return results.FailureResult[*oracledomain.Subscription, error](oracledomain.ErrInvalidSubscription), nil
		}
		if err != nil {
			return results.OperationResult[*oracledomain.Subscription, error]{}, err
		}
		return results.SuccessResult[*oracledomain.Subscription, error](sub), nil
	}))
}

func (s *OracleService) Provision(ctx context.Context, owner, consumer string, amount int64) (int64, error) {
	return unwrap(withTelemetry(s, ctx, "Provision", consumer, func(ctx context.Context) (results.OperationResult[int64, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
			existing, err := s.repo.FindSubscription(ctx, db, owner, consumer)
			switch {
			case err == nil:
				s.logger.InfoContext(ctx, "Reusing provisioned subscription",
					attr.ExtractCorrelationID(ctx),
					attr.Int64("subscription_id", existing),
					attr.String("consumer", consumer),
				)
				return results.SuccessResult[int64, error](existing), nil
			case !errors.Is(err, oracledb.ErrSubscriptionNotFound):
				return results.OperationResult[int64, error]{}, err
			}

			id, err := s.repo.CreateSubscription(ctx, db, owner, s.clock.Now())
			if err != nil {
				return results.OperationResult[int64, error]{}, err
			}
			// Failures roll back here so no half-provisioned subscription remains.
			funded, err := s.fund(ctx, db, id, amount)
			if err != nil {
				return results.OperationResult[int64, error]{}, err
			}
			if funded.IsFailure() {
				return results.OperationResult[int64, error]{}, fmt.Errorf("failed to fund subscription: %w", *funded.Failure)
			}
			added, err := s.addConsumer(ctx, db, id, owner, consumer)
			if err != nil {
				return results.OperationResult[int64, error]{}, err
			}
			if added.IsFailure() {
				return results.OperationResult[int64, error]{}, fmt.Errorf("failed to add consumer: %w", *added.Failure)
			}
			s.logger.InfoContext(ctx, "Subscription provisioned",
				attr.ExtractCorrelationID(ctx),
				attr.Int64("subscription_id", id),
				attr.String("consumer", consumer),
				attr.Int64("balance", amount),
			)
			return results.SuccessResult[int64, error](id), nil
		})
	}))
}

// lockSubscription loads and locks the subscription. A missing subscription is
// returned as a failure, not an error.
func (s *OracleService) lockSubscription(ctx context.Context, db bun.IDB, subID int64) (*oracledomain.Subscription, *error, error) {
	sub, err := s.repo.GetSubscriptionForUpdate(ctx, db, subID)
	if errors.Is(err, oracledb.ErrSubscriptionNotFound) {
		failure := oracledomain.ErrInvalidSubscription
		return nil, &failure, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return sub, nil, nil
}
