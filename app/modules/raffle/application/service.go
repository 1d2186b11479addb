package raffleservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/payout"
	raffledb "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	rafflemetrics "github.com/Black-And-White-Club/raffle/pkg/observability/metrics/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/results"
)

const serviceName = "RaffleService"

// RaffleService implements the Service interface.
type RaffleService struct {
	cfg         Config
	repo        raffledb.Repository
	ledger      payout.Ledger
	coordinator Coordinator
	clock       Clock
	logger      *slog.Logger
	metrics     rafflemetrics.RaffleMetrics
	tracer      trace.Tracer
	db          *bun.DB

	// mu serializes mutating operations inside this process. The row lock taken
	// by GetRaffleForUpdate orders them across processes.
	mu sync.Mutex
}

// NewRaffleService creates a new RaffleService.
func NewRaffleService(
	cfg Config,
	repo raffledb.Repository,
	ledger payout.Ledger,
	coordinator Coordinator,
	clock Clock,
	logger *slog.Logger,
	metrics rafflemetrics.RaffleMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *RaffleService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &RaffleService{
		cfg:         cfg,
		repo:        repo,
		ledger:      ledger,
		coordinator: coordinator,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
		db:          db,
	}
}

// unwrap turns an operation result into the public (value, error) pair.
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

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *RaffleService,
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

// runInTx ensures the operation runs within a transaction. Returning an error
// from fn rolls the transaction back; a failure result commits.
func runInTx[S any, F any](
	s *RaffleService,
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

func (s *RaffleService) recordRound(ctx context.Context, round *raffledomain.Round) {
	if s.metrics != nil {
		s.metrics.RecordRound(ctx, round.State.String(), len(round.Players), round.Pot)
	}
}
