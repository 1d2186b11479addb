package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"

	oracleservice "github.com/Black-And-White-Club/raffle/app/modules/oracle/application"
	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	oraclehandlers "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/handlers"
	oraclequeue "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/queue"
	oracledb "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories"
	"github.com/Black-And-White-Club/raffle/config"
	"github.com/Black-And-White-Club/raffle/pkg/observability"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	oraclemetrics "github.com/Black-And-White-Club/raffle/pkg/observability/metrics/oracle"
	"github.com/Black-And-White-Club/raffle/pkg/signing"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

// Module is the in-process randomness coordinator.
type Module struct {
	Service oracleservice.Service
	HTTP    *oraclehandlers.HTTPHandlers
	queue   *oraclequeue.Service
	logger  *slog.Logger
	config  *config.Config
}

// NewOracleModule builds the coordinator and its fulfillment queue.
func NewOracleModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db *bun.DB,
	publisher message.Publisher,
	helpers utils.Helpers,
) (*Module, error) {
	logger := obs.Provider.Logger.With(attr.String("module", "oracle"))
	logger.Info("oracle.NewOracleModule called")

	signer, err := newSigner(cfg.Oracle.Seed, logger)
	if err != nil {
		return nil, err
	}

	metrics := oraclemetrics.NewPrometheus(obs.Registry.Prometheus)
	service := oracleservice.NewOracleService(
		oracleservice.Config{
			Pricing: oracledomain.Pricing{
				BaseFee:        cfg.Oracle.BaseFee,
				GasPrice:       cfg.Oracle.GasPrice,
				FulfillmentGas: cfg.Oracle.FulfillmentGas,
			},
			BlockTime: cfg.Oracle.BlockTime,
		},
		oracledb.NewRepository(db),
		signer,
		nil,
		publisher,
		helpers,
		logger,
		metrics,
		obs.Registry.Tracer,
		db,
	)

	queue, err := oraclequeue.NewService(ctx, db, logger, cfg.Postgres.DSN, metrics, service)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle queue: %w", err)
	}
	service.SetScheduler(queue)

	logger.Info("Oracle ready", attr.String("address", signer.PublicKey()))
	return &Module{
		Service: service,
		HTTP:    oraclehandlers.NewHTTPHandlers(service, queue, logger),
		queue:   queue,
		logger:  logger,
		config:  cfg,
	}, nil
}

func newSigner(seed string, logger *slog.Logger) (signing.Signer, error) {
	if seed != "" {
		signer, err := signing.NewSignerFromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("invalid oracle seed: %w", err)
		}
		return signer, nil
	}
	signer, _, err := signing.NewRandomSigner()
	if err != nil {
		return nil, err
	}
	logger.Warn("No oracle seed configured, generated an ephemeral key; pending fulfillments will not verify after a restart")
	return signer, nil
}

// Address is the oracle address the raffle must trust.
func (m *Module) Address() string {
	return m.Service.Address()
}

// Provision returns the subscription the raffle should use: the configured id,
// or a funded subscription with the raffle as consumer when auto provisioning.
func (m *Module) Provision(ctx context.Context, consumer string) (int64, error) {
	if !m.config.Oracle.AutoProvision {
		return m.config.Raffle.SubscriptionID, nil
	}
	id, err := m.Service.Provision(ctx, m.config.Oracle.Owner, consumer, m.config.Oracle.FundAmount)
	if err != nil {
		return 0, fmt.Errorf("failed to provision oracle subscription: %w", err)
	}
	return id, nil
}

func (m *Module) Start(ctx context.Context) error {
	m.logger.Info("Starting oracle module")
	return m.queue.Start(ctx)
}

// HealthCheck reports whether the fulfillment queue is reachable.
func (m *Module) HealthCheck(ctx context.Context) error {
	return m.queue.HealthCheck(ctx)
}

func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping oracle module")
	return m.queue.Stop(ctx)
}
