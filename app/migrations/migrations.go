// Package migrations lists the schema migrators of every module. Each module
// tracks its history in its own table so groups roll back independently.
package migrations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	oraclemigrations "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories/migrations"
	rafflemigrations "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
)

// Modules is the order migrations run in.
var Modules = []string{"oracle", "raffle"}

func sources() map[string]*migrate.Migrations {
	return map[string]*migrate.Migrations{
		"oracle": oraclemigrations.Migrations,
		"raffle": rafflemigrations.Migrations,
	}
}

// NewMigrators returns one migrator per module, keyed by module name.
func NewMigrators(db *bun.DB) map[string]*migrate.Migrator {
	migrators := make(map[string]*migrate.Migrator, len(Modules))
	for name, m := range sources() {
		migrators[name] = migrate.NewMigrator(db, m,
			migrate.WithTableName(name+"_migrations"),
			migrate.WithLocksTableName(name+"_migration_locks"),
		)
	}
	return migrators
}

// Up initializes the migration tables and applies every pending migration.
func Up(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	migrators := NewMigrators(db)
	for _, name := range Modules {
		migrator := migrators[name]
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", name, err)
		}
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to lock %s migrations: %w", name, err)
		}
		group, err := migrator.Migrate(ctx)
		if unlockErr := migrator.Unlock(ctx); unlockErr != nil && err == nil {
			err = unlockErr
		}
		if err != nil {
			return fmt.Errorf("failed to migrate %s: %w", name, err)
		}
		if group.IsZero() {
			logger.InfoContext(ctx, "No new migrations", attr.String("module", name))
			continue
		}
		logger.InfoContext(ctx, "Migrated module", attr.String("module", name), attr.String("group", group.String()))
	}
	return nil
}

// RiverUp applies River's own schema.
func RiverUp(ctx context.Context, dsn string, logger *slog.Logger) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to open river pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("failed to migrate river: %w", err)
	}
	for _, v := range res.Versions {
		logger.InfoContext(ctx, "Applied river migration", attr.Int("version", v.Version))
	}
	return nil
}
