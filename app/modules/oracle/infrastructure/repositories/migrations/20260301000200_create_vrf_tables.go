package oraclemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating vrf tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS vrf_subscriptions (
					id BIGSERIAL PRIMARY KEY,
					owner VARCHAR(64) NOT NULL,
					balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
					request_count BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create vrf_subscriptions table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS vrf_consumers (
					subscription_id BIGINT NOT NULL REFERENCES vrf_subscriptions(id) ON DELETE CASCADE,
					consumer VARCHAR(64) NOT NULL,
					added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (subscription_id, consumer)
				);
			`); err != nil {
				return fmt.Errorf("failed to create vrf_consumers table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS vrf_requests (
					id BIGSERIAL PRIMARY KEY,
					subscription_id BIGINT NOT NULL REFERENCES vrf_subscriptions(id) ON DELETE CASCADE,
					consumer VARCHAR(64) NOT NULL,
					key_hash VARCHAR(66) NOT NULL,
					request_confirmations INTEGER NOT NULL,
					callback_gas_limit BIGINT NOT NULL,
					num_words BIGINT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					fulfill_after TIMESTAMPTZ NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_vrf_requests_fulfill_after ON vrf_requests (fulfill_after);
			`); err != nil {
				return fmt.Errorf("failed to create vrf_requests table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping vrf tables...")

		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS vrf_requests;
			DROP TABLE IF EXISTS vrf_consumers;
			DROP TABLE IF EXISTS vrf_subscriptions;
		`); err != nil {
			return fmt.Errorf("failed to drop vrf tables: %w", err)
		}
		return nil
	})
}
