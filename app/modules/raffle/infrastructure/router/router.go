package rafflerouter

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	rafflehandlers "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/handlers"
	"github.com/Black-And-White-Club/raffle/pkg/eventbus"
	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/handlerwrapper"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// RaffleRouter binds the raffle handlers to bus topics.
type RaffleRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	helper     utils.Helpers
	tracer     trace.Tracer
	metrics    handlerwrapper.ReturningMetrics

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

func NewRaffleRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	helper utils.Helpers,
	tracer trace.Tracer,
	handlerMetrics handlerwrapper.ReturningMetrics,
	registry *prometheus.Registry,
) *RaffleRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil && os.Getenv(TestEnvironmentFlag) != TestEnvironmentValue {
		b := metrics.NewPrometheusMetricsBuilder(registry, "raffle", "router")
		metricsBuilder = &b
	}

	return &RaffleRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		helper:         helper,
		tracer:         tracer,
		metrics:        handlerMetrics,
		metricsBuilder: metricsBuilder,
	}
}

// Topics returns the subscribed topics of the raffle at address.
func Topics(address raffledomain.Address) []string {
	return []string{
		raffleevents.RaffleEnterRequestedV1,
		eventbus.FormatScopedTopic(oracleevents.RandomWordsFulfilledV1, string(address)),
	}
}

func (r *RaffleRouter) Configure(_ context.Context, address raffledomain.Address, handlers rafflehandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: 3, InitialInterval: 100 * time.Millisecond, Logger: watermill.NewSlogLogger(r.logger)}.Middleware,
	)

	topics := Topics(address)
	registerHandler(r, topics[0], handlers.HandleEnterRequested)
	registerHandler(r, topics[1], handlers.HandleRandomWordsFulfilled)
	return nil
}

func registerHandler[T any](
	r *RaffleRouter,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "raffle." + topic

	r.Router.AddNoPublisherHandler(
		handlerName,
		topic,
		r.subscriber,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			r.logger,
			r.tracer,
			r.helper,
			r.metrics,
			r.publisher,
			handler,
		),
	)
}

func (r *RaffleRouter) Close() error {
	return r.Router.Close()
}
