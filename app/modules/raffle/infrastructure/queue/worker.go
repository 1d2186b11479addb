package rafflequeue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/riverqueue/river"

	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/pkg/eventbus"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	rafflemetrics "github.com/Black-And-White-Club/raffle/pkg/observability/metrics/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

// Upkeeper is the part of the raffle service the keeper drives.
type Upkeeper interface {
	CheckUpkeep(ctx context.Context, performData []byte) (*raffleservice.UpkeepResult, error)
	PerformUpkeep(ctx context.Context, performData []byte) (*raffleservice.PerformUpkeepResult, error)
}

// KeeperWorker is the automation node of the raffle: it checks upkeep off the
// hot path and performs it when needed.
type KeeperWorker struct {
	river.WorkerDefaults[KeeperJob]
	logger    *slog.Logger
	upkeeper  Upkeeper
	publisher message.Publisher
	helpers   utils.Helpers
	metrics   rafflemetrics.RaffleMetrics
}

func NewKeeperWorker(
	logger *slog.Logger,
	upkeeper Upkeeper,
	publisher message.Publisher,
	helpers utils.Helpers,
	metrics rafflemetrics.RaffleMetrics,
) *KeeperWorker {
	return &KeeperWorker{
		logger:    logger,
		upkeeper:  upkeeper,
		publisher: publisher,
		helpers:   helpers,
		metrics:   metrics,
	}
}

// Work runs one keeper cycle. Losing the race to another caller is not an
// error: PerformUpkeep re-validates and reports UpkeepNotNeeded.
func (w *KeeperWorker) Work(ctx context.Context, job *river.Job[KeeperJob]) error {
	logger := w.logger.With(
		attr.Int64("job_id", job.ID),
		attr.String("raffle_id", job.Args.RaffleID),
	)

	check, err := w.upkeeper.CheckUpkeep(ctx, nil)
	if err != nil {
		w.record(ctx, OutcomeError)
		logger.ErrorContext(ctx, "Upkeep check failed", attr.Error(err))
		return err
	}
	if !check.UpkeepNeeded {
		w.record(ctx, OutcomeIdle)
		logger.DebugContext(ctx, "Upkeep not needed",
			attr.Bool("is_open", check.Status.IsOpen),
			attr.Bool("time_passed", check.Status.TimePassed),
			attr.Bool("has_players", check.Status.HasPlayers),
			attr.Bool("has_balance", check.Status.HasBalance),
		)
		return nil
	}

	res, err := w.upkeeper.PerformUpkeep(ctx, check.PerformData)
	switch {
	case err == nil:
	case errors.Is(err, raffledomain.ErrUpkeepNotNeeded):
		w.record(ctx, OutcomeSkipped)
		logger.InfoContext(ctx, "Upkeep already performed", attr.Error(err))
		return nil
	default:
		w.record(ctx, OutcomeError)
		logger.ErrorContext(ctx, "Perform upkeep failed", attr.Error(err))
		return err
	}

	w.record(ctx, OutcomeRequested)
	logger.InfoContext(ctx, "Requested raffle winner", attr.Int64("request_id", int64(res.RequestID)))

	if w.publisher != nil {
		if err := eventbus.PublishPayload(ctx, w.publisher, w.helpers, raffleevents.RaffleWinnerRequestedV1, &raffleevents.RaffleWinnerRequestedPayloadV1{
			RaffleID:  res.RaffleID.String(),
			RequestID: int64(res.RequestID),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish winner requested event", attr.Error(err))
		}
	}
	return nil
}

func (w *KeeperWorker) record(ctx context.Context, outcome string) {
	if w.metrics != nil {
		w.metrics.RecordKeeperRun(ctx, outcome)
	}
}

// Timeout bounds a single keeper cycle.
func (w *KeeperWorker) Timeout(*river.Job[KeeperJob]) time.Duration {
	return 30 * time.Second
}
