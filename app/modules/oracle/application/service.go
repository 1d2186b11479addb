package oracleservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	oracledb "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	oraclemetrics "github.com/Black-And-White-Club/raffle/pkg/observability/metrics/oracle"
	"github.com/Black-And-White-Club/raffle/pkg/results"
	"github.com/Black-And-White-Club/raffle/pkg/signing"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

const serviceName = "OracleService"

// OracleService implements the Service interface.
type OracleService struct {
	cfg       Config
	repo      oracledb.Repository
	signer    signing.Signer
	scheduler Scheduler
	publisher message.Publisher
	helpers   utils.Helpers
	clock     Clock
	logger    *slog.Logger
	metrics   oraclemetrics.OracleMetrics
	tracer    trace.Tracer
	db        *bun.DB
}

// NewOracleService creates a new OracleService. scheduler may be nil, in which
// case requests wait for a manual fulfillment.
func NewOracleService(
	cfg Config,
	repo oracledb.Repository,
	signer signing.Signer,
	scheduler Scheduler,
	publisher message.Publisher,
	helpers utils.Helpers,
	logger *slog.Logger,
	metrics oraclemetrics.OracleMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *OracleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OracleService{
		cfg:       cfg,
		repo:      repo,
		signer:    signer,
		scheduler: scheduler,
		publisher: publisher,
		helpers:   helpers,
		clock:     systemClock{},
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
	}
}

// SetScheduler installs the fulfillment scheduler. The queue is built after
// the service because its worker calls back into it; call this before Start.
func (s *OracleService) SetScheduler(scheduler Scheduler) {
	s.scheduler = scheduler
}

func (s *OracleService) Address() string {
	return s.signer.PublicKey()
}

func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if !result.IsSuccess() {
		return zero, fmt.Errorf("operation returned no result")
	}
	return *result.Success, nil
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *OracleService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *OracleService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
