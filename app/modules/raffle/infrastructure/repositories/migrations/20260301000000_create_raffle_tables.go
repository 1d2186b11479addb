package rafflemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating raffle tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS raffles (
					uuid UUID PRIMARY KEY,
					state SMALLINT NOT NULL DEFAULT 0,
					entrance_fee BIGINT NOT NULL CHECK (entrance_fee >= 0),
					interval_ms BIGINT NOT NULL CHECK (interval_ms >= 0),
					last_timestamp TIMESTAMPTZ NOT NULL,
					pot BIGINT NOT NULL DEFAULT 0 CHECK (pot >= 0),
					recent_winner VARCHAR(64),
					pending_request_id BIGINT NOT NULL DEFAULT 0,
					round_number BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create raffles table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS raffle_players (
					raffle_uuid UUID NOT NULL REFERENCES raffles(uuid) ON DELETE CASCADE,
					position INT NOT NULL,
					address VARCHAR(64) NOT NULL,
					value BIGINT NOT NULL,
					entered_at TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (raffle_uuid, position)
				);
			`); err != nil {
				return fmt.Errorf("failed to create raffle_players table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS raffle_winners (
					id BIGSERIAL PRIMARY KEY,
					raffle_uuid UUID NOT NULL REFERENCES raffles(uuid) ON DELETE CASCADE,
					round_number BIGINT NOT NULL,
					winner VARCHAR(64) NOT NULL,
					prize BIGINT NOT NULL,
					request_id BIGINT NOT NULL,
					resolved_at TIMESTAMPTZ NOT NULL,
					UNIQUE (raffle_uuid, round_number)
				);
				CREATE INDEX IF NOT EXISTS idx_raffle_winners_resolved_at ON raffle_winners(raffle_uuid, resolved_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to create raffle_winners table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping raffle tables...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS raffle_winners, raffle_players, raffles;`)
		if err != nil {
			return fmt.Errorf("failed to drop raffle tables: %w", err)
		}
		return nil
	})
}
