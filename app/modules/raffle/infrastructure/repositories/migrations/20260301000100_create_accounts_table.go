package rafflemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating accounts table...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS accounts (
				address VARCHAR(64) PRIMARY KEY,
				balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
				rejects_payments BOOLEAN NOT NULL DEFAULT FALSE,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`); err != nil {
			return fmt.Errorf("failed to create accounts table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping accounts table...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS accounts;`); err != nil {
			return fmt.Errorf("failed to drop accounts table: %w", err)
		}
		return nil
	})
}
