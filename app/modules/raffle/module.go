package raffle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	oraclemodule "github.com/Black-And-White-Club/raffle/app/modules/oracle"
	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/coordinator"
	rafflehandlers "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/handlers"
	"github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/payout"
	rafflequeue "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/queue"
	raffledb "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/repositories"
	rafflerouter "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/router"
	"github.com/Black-And-White-Club/raffle/config"
	"github.com/Black-And-White-Club/raffle/pkg/observability"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/observability/metrics"
	rafflemetrics "github.com/Black-And-White-Club/raffle/pkg/observability/metrics/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

// Module represents the raffle module.
type Module struct {
	Service raffleservice.Service
	Router  *rafflerouter.RaffleRouter
	HTTP    *rafflehandlers.HTTPHandlers
	queue   *rafflequeue.Service
	breaker *coordinator.Breaker
	logger  *slog.Logger
}

// NewRaffleModule creates the raffle, binds it to the bus and, when enabled,
// schedules its keeper. The oracle must be built first: its address is the
// only caller allowed to fulfill.
func NewRaffleModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db *bun.DB,
	bus message.Publisher,
	subscriber message.Subscriber,
	router *message.Router,
	helpers utils.Helpers,
	oracle *oraclemodule.Module,
) (*Module, error) {
	logger := obs.Provider.Logger.With(attr.String("module", "raffle"))
	logger.Info("raffle.NewRaffleModule called")

	raffleID, err := uuid.Parse(cfg.Raffle.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid raffle id: %w", err)
	}
	address := raffledomain.Address(cfg.Raffle.Address)

	subscriptionID, err := oracle.Provision(ctx, address.String())
	if err != nil {
		return nil, err
	}

	raffleMetrics := rafflemetrics.NewPrometheus(obs.Registry.Prometheus)
	breaker := coordinator.NewBreaker(
		coordinator.NewLocal(oracle.Service),
		coordinator.BreakerConfig{
			ConsecutiveFailures: cfg.Oracle.BreakerFailures,
			OpenTimeout:         cfg.Oracle.BreakerOpenDelay,
		},
		logger,
	)

	service := raffleservice.NewRaffleService(
		raffleservice.Config{
			RaffleID:         raffleID,
			Address:          address,
			OracleAddress:    raffledomain.Address(oracle.Address()),
			EntranceFee:      cfg.Raffle.EntranceFee,
			Interval:         cfg.Raffle.Interval,
			KeyHash:          cfg.Raffle.KeyHash,
			SubscriptionID:   subscriptionID,
			CallbackGasLimit: cfg.Raffle.CallbackGasLimit,
		},
		raffledb.NewRepository(db),
		payout.NewLedger(db),
		breaker,
		nil,
		logger,
		raffleMetrics,
		obs.Registry.Tracer,
		db,
	)

	snapshot, err := service.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize raffle: %w", err)
	}
	logger.Info("Raffle ready",
		attr.String("raffle_id", raffleID.String()),
		attr.String("address", address.String()),
		attr.String("state", snapshot.State.String()),
		attr.Int("players", snapshot.NumberOfPlayers),
		attr.Int64("subscription_id", subscriptionID),
	)

	raffleRouter := rafflerouter.NewRaffleRouter(
		logger,
		router,
		subscriber,
		bus,
		helpers,
		obs.Registry.Tracer,
		metrics.NewHandlerMetrics(raffleMetrics, "RaffleHandlers"),
		obs.Registry.Prometheus,
	)
	handlers := rafflehandlers.NewRaffleHandlers(service, raffleID, address, logger, obs.Registry.Tracer)
	if err := raffleRouter.Configure(ctx, address, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure raffle router: %w", err)
	}

	module := &Module{
		Service: service,
		Router:  raffleRouter,
		HTTP:    rafflehandlers.NewHTTPHandlers(service, address, bus, helpers, logger),
		breaker: breaker,
		logger:  logger,
	}

	if cfg.Raffle.KeeperEnabled {
		worker := rafflequeue.NewKeeperWorker(logger, service, bus, helpers, raffleMetrics)
		queue, err := rafflequeue.NewService(ctx, db, logger, cfg.Postgres.DSN, rafflequeue.Config{
			RaffleID:     raffleID.String(),
			PollInterval: cfg.Raffle.KeeperInterval,
		}, raffleMetrics, worker)
		if err != nil {
			return nil, fmt.Errorf("failed to create keeper queue: %w", err)
		}
		module.queue = queue
	} else {
		logger.Warn("Keeper disabled, upkeep must be performed through the API")
	}

	return module, nil
}

func (m *Module) Start(ctx context.Context) error {
	m.logger.Info("Starting raffle module")
	if m.queue == nil {
		return nil
	}
	return m.queue.Start(ctx)
}

// HealthCheck reports an open coordinator breaker or an unreachable keeper queue.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.breaker.State() == "open" {
		return coordinator.ErrCoordinatorUnavailable
	}
	if m.queue == nil {
		return nil
	}
	return m.queue.HealthCheck(ctx)
}

func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping raffle module")
	if m.queue == nil {
		return nil
	}
	return m.queue.Stop(ctx)
}
