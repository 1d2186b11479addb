package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Black-And-White-Club/raffle/app/migrations"
	"github.com/Black-And-White-Club/raffle/integration_tests/containers"
)

// TestEnvironment holds the containers and connections shared by a test package.
type TestEnvironment struct {
	DB      *bun.DB
	DSN     string
	NatsURL string
	Logger  *slog.Logger

	pgContainer   *postgres.PostgresContainer
	natsContainer *nats.NATSContainer
}

// appTables are truncated between tests.
var appTables = []string{
	"raffle_winners",
	"raffle_players",
	"raffles",
	"accounts",
	"vrf_requests",
	"vrf_consumers",
	"vrf_subscriptions",
	"river_job",
}

// NewTestEnvironment starts Postgres and NATS and applies every migration.
func NewTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	env := &TestEnvironment{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}

	pg, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	env.pgContainer = pg
	env.DSN = dsn

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Terminate(ctx)
		return nil, err
	}
	env.natsContainer = natsContainer
	env.NatsURL = natsURL

	env.DB = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	if err := env.DB.PingContext(ctx); err != nil {
		env.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.Up(ctx, env.DB, env.Logger); err != nil {
		env.Terminate(ctx)
		return nil, err
	}
	if err := migrations.RiverUp(ctx, dsn, env.Logger); err != nil {
		env.Terminate(ctx)
		return nil, err
	}
	return env, nil
}

// Reset truncates every application table.
func (e *TestEnvironment) Reset(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(appTables, ", "))
	if _, err := e.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Terminate closes connections and stops the containers.
func (e *TestEnvironment) Terminate(ctx context.Context) {
	if e.DB != nil {
		_ = e.DB.Close()
	}
	if e.natsContainer != nil {
		_ = e.natsContainer.Terminate(ctx)
	}
	if e.pgContainer != nil {
		_ = e.pgContainer.Terminate(ctx)
	}
}
