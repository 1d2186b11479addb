package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/Black-And-White-Club/raffle/app/migrations"
	"github.com/Black-And-White-Club/raffle/config"
	"github.com/Black-And-White-Club/raffle/pkg/observability"
)

func main() {
	// Only the database settings are used here.
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	migrators := migrations.NewMigrators(db)

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(migrators),
			newRiverCommand(cfg.Postgres.DSN),
		},
	}

	if err := cliApp.Run(append([]string{os.Args[0]}, flag.Args()...)); err != nil {
		log.Fatal(err)
	}
}

func newRiverCommand(dsn string) *cli.Command {
	return &cli.Command{
		Name:  "river",
		Usage: "apply the job queue schema",
		Action: func(c *cli.Context) error {
			return migrations.RiverUp(c.Context, dsn, observability.NewLogger("development", "info"))
		},
	}
}

func forEachModule(migrators map[string]*migrate.Migrator, fn func(name string, m *migrate.Migrator) error) error {
	for _, name := range migrations.Modules {
		if err := fn(name, migrators[name]); err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
	}
	return nil
}

func lookup(migrators map[string]*migrate.Migrator, c *cli.Context) (string, *migrate.Migrator, error) {
	moduleName := c.Args().First()
	migrator, ok := migrators[moduleName]
	if !ok {
		return "", nil, fmt.Errorf("invalid module name %q, want one of %s", moduleName, strings.Join(migrations.Modules, ", "))
	}
	return moduleName, migrator, nil
}

func newMultiModuleDBCommand(migrators map[string]*migrate.Migrator) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return forEachModule(migrators, func(name string, m *migrate.Migrator) error {
						fmt.Printf("Initializing migrations for module: %s\n", name)
						return m.Init(c.Context)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					return forEachModule(migrators, func(name string, m *migrate.Migrator) error {
						if err := m.Lock(c.Context); err != nil {
							return err
						}
						defer m.Unlock(c.Context) //nolint:errcheck

						group, err := m.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", name, group)
						}
						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of a module",
				Action: func(c *cli.Context) error {
					name, m, err := lookup(migrators, c)
					if err != nil {
						return err
					}
					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Printf("No groups to roll back for module: %s\n", name)
					} else {
						fmt.Printf("Rolled back module: %s to %s\n", name, group)
					}
					return nil
				},
			},
			{
				Name:  "create_go",
				Usage: "create Go migration",
				Action: func(c *cli.Context) error {
					name, m, err := lookup(migrators, c)
					if err != nil {
						return err
					}
					mf, err := m.CreateGoMigration(c.Context, strings.Join(c.Args().Tail(), "_"))
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", name, mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "create_sql",
				Usage: "create up and down SQL migrations",
				Action: func(c *cli.Context) error {
					name, m, err := lookup(migrators, c)
					if err != nil {
						return err
					}
					files, err := m.CreateSQLMigrations(c.Context, strings.Join(c.Args().Tail(), "_"))
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration for module %s: %s (%s)\n", name, mf.Name, mf.Path)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					return forEachModule(migrators, func(name string, m *migrate.Migrator) error {
						ms, err := m.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", name)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
						return nil
					})
				},
			},
		},
	}
}
