package raffle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	oracleservice "github.com/Black-And-White-Club/raffle/app/modules/oracle/application"
	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	oraclequeue "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/queue"
	oracledb "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories"
	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/coordinator"
	rafflehandlers "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/handlers"
	"github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/payout"
	rafflequeue "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/queue"
	raffledb "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/repositories"
	rafflerouter "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/router"
	"github.com/Black-And-White-Club/raffle/config"
	"github.com/Black-And-White-Club/raffle/integration_tests/testutils"
	"github.com/Black-And-White-Club/raffle/pkg/eventbus"
	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/observability/metrics"
	oraclemetrics "github.com/Black-And-White-Club/raffle/pkg/observability/metrics/oracle"
	rafflemetrics "github.com/Black-And-White-Club/raffle/pkg/observability/metrics/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/signing"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

const testFee int64 = config.DefaultEntranceFee

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Now().UTC().Truncate(time.Microsecond)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harnessOptions struct {
	interval time.Duration
	// realTime uses the wall clock instead of a manual clock.
	realTime bool
}

type harness struct {
	raffle   *raffleservice.RaffleService
	oracle   *oracleservice.OracleService
	ledger   payout.Ledger
	clock    *manualClock
	bus      eventbus.EventBus
	helpers  utils.Helpers
	raffleID uuid.UUID
	address  raffledomain.Address
	subID    int64
	gen      *testutils.TestDataGenerator
}

// newHarness wires an oracle and a raffle against the shared Postgres and NATS
// containers, with the raffle router consuming fulfillments from the bus.
func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, testEnv.Reset(ctx))

	if opts.interval == 0 {
		opts.interval = 30 * time.Second
	}

	gen := testutils.NewTestDataGenerator()
	t.Logf("data generator seed %d", gen.Seed())
	logger := testEnv.Logger
	tracer := noop.NewTracerProvider().Tracer("integration")
	helpers := utils.NewHelper()

	bus, err := eventbus.NewEventBus(ctx, testEnv.NatsURL, logger, "it-"+uuid.NewString()[:8], eventbus.Options{})
	require.NoError(t, err)
	require.NoError(t, bus.CreateStream(ctx, raffleevents.StreamName, raffleevents.StreamSubjects...))
	require.NoError(t, bus.CreateStream(ctx, oracleevents.StreamName, oracleevents.StreamSubjects...))
	t.Cleanup(func() { _ = bus.Close() })

	signer, _, err := signing.NewRandomSigner()
	require.NoError(t, err)

	oracle := oracleservice.NewOracleService(
		oracleservice.Config{
			Pricing: oracledomain.Pricing{
				BaseFee:        config.DefaultBaseFee,
				GasPrice:       config.DefaultGasPrice,
				FulfillmentGas: config.DefaultFulfillmentGas,
			},
			BlockTime: config.MinBlockTime,
		},
		oracledb.NewRepository(testEnv.DB),
		signer,
		nil,
		bus,
		helpers,
		logger,
		oraclemetrics.NewNoop(),
		tracer,
		testEnv.DB,
	)

	address := gen.Address("raffle")
	subID, err := oracle.Provision(ctx, "deployer", address.String(), config.DefaultFundAmount)
	require.NoError(t, err)

	var clock raffleservice.Clock
	var manual *manualClock
	if !opts.realTime {
		manual = newManualClock()
		clock = manual
	}

	ledger := payout.NewLedger(testEnv.DB)
	raffleID := uuid.New()
	raffle := raffleservice.NewRaffleService(
		raffleservice.Config{
			RaffleID:         raffleID,
			Address:          address,
			OracleAddress:    raffledomain.Address(signer.PublicKey()),
			EntranceFee:      testFee,
			Interval:         opts.interval,
			KeyHash:          config.DefaultKeyHash,
			SubscriptionID:   subID,
			CallbackGasLimit: config.DefaultCallbackGasLimit,
		},
		raffledb.NewRepository(testEnv.DB),
		ledger,
		coordinator.NewLocal(oracle),
		clock,
		logger,
		rafflemetrics.NewNoop(),
		tracer,
		testEnv.DB,
	)
	_, err = raffle.Initialize(ctx)
	require.NoError(t, err)

	wmRouter, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	require.NoError(t, err)
	router := rafflerouter.NewRaffleRouter(logger, wmRouter, bus, bus, helpers, tracer,
		metrics.NewHandlerMetrics(metrics.NoopOperationMetrics{}, "RaffleHandlers"), nil)
	require.NoError(t, router.Configure(ctx, address,
		rafflehandlers.NewRaffleHandlers(raffle, raffleID, address, logger, tracer)))

	routerCtx, cancel := context.WithCancel(ctx)
	go func() { _ = wmRouter.Run(routerCtx) }()
	<-wmRouter.Running()
	t.Cleanup(func() {
		cancel()
		_ = router.Close()
	})

	return &harness{
		raffle:   raffle,
		oracle:   oracle,
		ledger:   ledger,
		clock:    manual,
		bus:      bus,
		helpers:  helpers,
		raffleID: raffleID,
		address:  address,
		subID:    subID,
		gen:      gen,
	}
}

// startQueues runs the oracle fulfillment queue and the raffle keeper.
func (h *harness) startQueues(t *testing.T, keeperEvery time.Duration) {
	t.Helper()
	ctx := context.Background()
	logger := testEnv.Logger

	oq, err := oraclequeue.NewService(ctx, testEnv.DB, logger, testEnv.DSN, oraclemetrics.NewNoop(), h.oracle)
	require.NoError(t, err)
	h.oracle.SetScheduler(oq)

	worker := rafflequeue.NewKeeperWorker(logger, h.raffle, h.bus, h.helpers, rafflemetrics.NewNoop())
	kq, err := rafflequeue.NewService(ctx, testEnv.DB, logger, testEnv.DSN,
		rafflequeue.Config{RaffleID: h.raffleID.String(), PollInterval: keeperEvery},
		rafflemetrics.NewNoop(), worker)
	require.NoError(t, err)

	require.NoError(t, oq.Start(ctx))
	require.NoError(t, kq.Start(ctx))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = kq.Stop(stopCtx)
		_ = oq.Stop(stopCtx)
	})
}

// enterAll enters every player with the exact fee.
func (h *harness) enterAll(t *testing.T, players []raffledomain.Address) {
	t.Helper()
	for _, p := range players {
		_, err := h.raffle.Enter(context.Background(), p, testFee)
		require.NoError(t, err)
	}
}

// subscribe returns the messages published on topic after this call.
func (h *harness) subscribe(t *testing.T, topic string) <-chan *message.Message {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := h.bus.Subscribe(ctx, topic)
	require.NoError(t, err)
	return ch
}

// waitFor returns the first payload on ch that satisfies match. Durable
// consumers may replay messages from earlier tests, so callers filter by raffle.
func waitFor[T any](t *testing.T, h *harness, ch <-chan *message.Message, timeout time.Duration, match func(*T) bool) *T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-ch:
			msg.Ack()
			payload := new(T)
			require.NoError(t, h.helpers.UnmarshalPayload(msg, payload))
			if match(payload) {
				return payload
			}
		case <-deadline:
			t.Fatalf("no matching message within %s", timeout)
			return nil
		}
	}
}
