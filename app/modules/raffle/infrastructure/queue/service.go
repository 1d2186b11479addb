package rafflequeue

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

const queueName = "raffle"

// QueueService runs the periodic keeper of one raffle.
type QueueService interface {
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Config tunes the keeper schedule.
type Config struct {
	RaffleID     string
	PollInterval time.Duration
}

// Service runs the keeper on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics metrics.OperationMetrics
}

// NewService creates a River client that enqueues a KeeperJob every
// cfg.PollInterval and once at start.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, cfg Config, m metrics.OperationMetrics, worker *KeeperWorker) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_raffle_queue_service"),
		attr.String("component", "river_queue"),
	)
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("keeper poll interval must be positive, got %s", cfg.PollInterval)
	}

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing raffle keeper queue", attr.Duration("poll_interval", cfg.PollInterval))

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
	river.AddWorker(workers, worker)

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			queueName: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{keeperPeriodicJob(cfg)},
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	m.RecordOperationSuccess(ctx, "initialize_service", "river")
	m.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Raffle keeper queue initialized successfully")
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: m,
	}, nil
}

// keeperPeriodicJob builds the periodic keeper schedule. Each run gets one
// attempt; the next tick is the retry.
func keeperPeriodicJob(cfg Config) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(cfg.PollInterval),
		func() (river.JobArgs, *river.InsertOpts) {
			return KeeperJob{RaffleID: cfg.RaffleID}, keeperInsertOpts(cfg)
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}

func keeperInsertOpts(cfg Config) *river.InsertOpts {
	return &river.InsertOpts{
		Queue:       queueName,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: cfg.PollInterval,
		},
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting raffle keeper")
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	return nil
}

// Stop waits for a running keeper cycle and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping raffle keeper")
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	return nil
}

// HealthCheck verifies the River tables are reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	count, err := s.db.NewSelect().
		Table("river_job").
		Where("kind = ?", KeeperJob{}.Kind()).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("river health check failed: %w", err)
	}
	s.logger.Debug("River health check passed", attr.Int("keeper_jobs", count))
	return nil
}
