package oraclequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/observability/metrics"
)

const queueName = "oracle"

// QueueService schedules delayed fulfillments.
type QueueService interface {
	// ScheduleFulfillment enqueues a fulfillment of requestID to run at at.
	ScheduleFulfillment(ctx context.Context, requestID int64, at time.Time) error
	// GetScheduledJobs lists fulfillment jobs that have not completed.
	GetScheduledJobs(ctx context.Context) ([]JobInfo, error)
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service handles fulfillment scheduling using River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics metrics.OperationMetrics
}

// NewService creates a River-backed queue whose worker fulfills requests
// through fulfiller.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, m metrics.OperationMetrics, fulfiller Fulfiller) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_oracle_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing Oracle queue service")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewFulfillRandomWordsWorker(ctxLogger, fulfiller))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			queueName: {MaxWorkers: 10},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	m.RecordOperationSuccess(ctx, "initialize_service", "river")
	m.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Oracle queue service initialized successfully")
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: m,
	}, nil
}

func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting Oracle queue service")
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	return nil
}

// Stop waits for running fulfillments and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping Oracle queue service")
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	return nil
}

func (s *Service) ScheduleFulfillment(ctx context.Context, requestID int64, at time.Time) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_fulfillment", "river")

	ctxLogger := s.logger.With(
		attr.Int64("request_id", requestID),
		attr.Time("fulfill_after", at),
		attr.String("operation", "schedule_fulfillment"),
	)

	jobResult, err := s.client.Insert(ctx, FulfillRandomWordsJob{RequestID: requestID}, &river.InsertOpts{
		Queue:       queueName,
		ScheduledAt: at,
		MaxAttempts: 10,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to schedule fulfillment job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_fulfillment", "river")
		return fmt.Errorf("failed to schedule fulfillment job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_fulfillment", "river")
	s.metrics.RecordOperationDuration(ctx, "schedule_fulfillment", "river", time.Since(start))

	ctxLogger.Info("Fulfillment job scheduled",
		attr.Int64("job_id", jobResult.Job.ID),
		attr.Bool("duplicate", jobResult.UniqueSkippedAsDuplicate),
	)
	return nil
}

func (s *Service) GetScheduledJobs(ctx context.Context) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64          `bun:"id"`
		Kind        string         `bun:"kind"`
		State       string         `bun:"state"`
		Args        map[string]any `bun:"args"`
		ScheduledAt *time.Time     `bun:"scheduled_at"`
		Attempt     int16          `bun:"attempt"`
		MaxAttempts int16          `bun:"max_attempts"`
	}

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "scheduled_at", "attempt", "max_attempts").
		Where("kind = ?", FulfillRandomWordsJob{}.Kind()).
		Where("state NOT IN (?, ?, ?)", "completed", "cancelled", "discarded").
		Order("scheduled_at ASC NULLS LAST", "id ASC").
		Scan(ctx, &jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}

	out := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		scheduledAt := ""
		if job.ScheduledAt != nil {
			scheduledAt = job.ScheduledAt.Format(time.RFC3339)
		}
		var requestID int64
		if v, ok := job.Args["request_id"].(float64); ok {
			requestID = int64(v)
		}
		out[i] = JobInfo{
			ID:          job.ID,
			Kind:        job.Kind,
			RequestID:   requestID,
			State:       job.State,
			ScheduledAt: scheduledAt,
			Attempt:     int(job.Attempt),
			MaxAttempts: int(job.MaxAttempts),
		}
	}
	return out, nil
}

// HealthCheck verifies the River tables are reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	count, err := s.db.NewSelect().Table("river_job").Count(ctx)
	if err != nil {
		return fmt.Errorf("river health check failed: %w", err)
	}
	s.logger.Debug("River health check passed", attr.Int("job_count", count))
	return nil
}
