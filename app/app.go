// Package app assembles the raffle service: database, event bus, the oracle
// and raffle modules and the HTTP API.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Black-And-White-Club/raffle/app/migrations"
	oraclemodule "github.com/Black-And-White-Club/raffle/app/modules/oracle"
	rafflemodule "github.com/Black-And-White-Club/raffle/app/modules/raffle"
	"github.com/Black-And-White-Club/raffle/config"
	"github.com/Black-And-White-Club/raffle/pkg/eventbus"
	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/jwt"
	"github.com/Black-And-White-Club/raffle/pkg/observability"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

// App holds every long-lived component of the service.
type App struct {
	Config   *config.Config
	Obs      *observability.Observability
	DB       *bun.DB
	EventBus eventbus.EventBus
	Router   *message.Router
	Tokens   jwt.Service
	Oracle   *oraclemodule.Module
	Raffle   *rafflemodule.Module

	logger        *slog.Logger
	httpServer    *http.Server
	metricsServer *http.Server
}

// NewApp connects to Postgres and the bus, applies migrations and builds the
// modules. Nothing runs until Run is called.
func NewApp(ctx context.Context, cfg *config.Config, obs *observability.Observability) (*App, error) {
	logger := obs.Provider.Logger
	app := &App{
		Config: cfg,
		Obs:    obs,
		Tokens: jwt.NewService(cfg.JWT.Secret, cfg.JWT.DefaultTTL),
		logger: logger,
	}

	app.DB = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN))), pgdialect.New())
	if err := app.DB.PingContext(ctx); err != nil {
		app.closeQuietly()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.Up(ctx, app.DB, logger); err != nil {
		app.closeQuietly()
		return nil, err
	}
	if err := migrations.RiverUp(ctx, cfg.Postgres.DSN, logger); err != nil {
		app.closeQuietly()
		return nil, err
	}

	if err := app.initEventBus(ctx); err != nil {
		app.closeQuietly()
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		app.closeQuietly()
		return nil, fmt.Errorf("failed to create message router: %w", err)
	}
	app.Router = router

	helpers := utils.NewHelper()

	app.Oracle, err = oraclemodule.NewOracleModule(ctx, cfg, obs, app.DB, app.EventBus, helpers)
	if err != nil {
		app.closeQuietly()
		return nil, err
	}

	app.Raffle, err = rafflemodule.NewRaffleModule(ctx, cfg, obs, app.DB, app.EventBus, app.EventBus, router, helpers, app.Oracle)
	if err != nil {
		app.closeQuietly()
		return nil, err
	}

	app.httpServer = &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: app.HTTPHandler(),
	}
	if cfg.Observability.MetricsAddress != "" {
		app.metricsServer = &http.Server{
			Addr:    cfg.Observability.MetricsAddress,
			Handler: app.MetricsHandler(),
		}
	}

	return app, nil
}

func (app *App) initEventBus(ctx context.Context) error {
	if app.Config.NATS.URL == "" {
		app.logger.Warn("No NATS url configured, using the in-process event bus")
		app.EventBus = eventbus.NewInMemoryEventBus(app.logger)
	} else {
		bus, err := eventbus.NewEventBus(ctx, app.Config.NATS.URL, app.logger, "raffle", eventbus.Options{})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		app.EventBus = bus
	}

	streams := map[string][]string{
		raffleevents.StreamName: raffleevents.StreamSubjects,
		oracleevents.StreamName: oracleevents.StreamSubjects,
	}
	for name, subjects := range streams {
		if err := app.EventBus.CreateStream(ctx, name, subjects...); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}
	}
	return nil
}
