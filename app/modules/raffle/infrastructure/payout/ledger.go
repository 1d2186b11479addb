// Package payout credits raffle prizes to player accounts.
package payout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// ErrPaymentRejected is returned when the recipient refuses incoming transfers.
var ErrPaymentRejected = errors.New("recipient rejected payment")

// Account is a player balance.
type Account struct {
	bun.BaseModel   `bun:"table:accounts,alias:a"`
	Address         string    `bun:"address,pk"`
	Balance         int64     `bun:"balance,notnull"`
	RejectsPayments bool      `bun:"rejects_payments,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Ledger moves value into accounts.
type Ledger interface {
	// Transfer credits amount to the recipient inside db when given.
	Transfer(ctx context.Context, db bun.IDB, to raffledomain.Address, amount int64) error
	Balance(ctx context.Context, db bun.IDB, address raffledomain.Address) (int64, error)
	// SetRejectsPayments flags an account so every transfer to it fails.
	SetRejectsPayments(ctx context.Context, db bun.IDB, address raffledomain.Address, reject bool) error
}

// Impl implements Ledger with Bun.
type Impl struct {
	db bun.IDB
}

func NewLedger(db bun.IDB) Ledger {
	return &Impl{db: db}
}

func (l *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return l.db
	}
	return db
}

func (l *Impl) Transfer(ctx context.Context, db bun.IDB, to raffledomain.Address, amount int64) error {
	db = l.resolveDB(db)
	if amount < 0 {
		return fmt.Errorf("negative transfer amount %d", amount)
	}

	if _, err := db.NewInsert().
		Model(&Account{Address: string(to)}).
		On("CONFLICT (address) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}

	account := new(Account)
	if err := db.NewSelect().
		Model(account).
		Where("address = ?", string(to)).
		For("UPDATE").
		Scan(ctx); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if account.RejectsPayments {
		return fmt.Errorf("%w: %s", ErrPaymentRejected, to)
	}

	_, err := db.NewUpdate().
		Model((*Account)(nil)).
		Set("balance = balance + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("address = ?", string(to)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

func (l *Impl) Balance(ctx context.Context, db bun.IDB, address raffledomain.Address) (int64, error) {
	db = l.resolveDB(db)
	account := new(Account)
	err := db.NewSelect().
		Model(account).
		Where("address = ?", string(address)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return account.Balance, nil
}

func (l *Impl) SetRejectsPayments(ctx context.Context, db bun.IDB, address raffledomain.Address, reject bool) error {
	db = l.resolveDB(db)
	_, err := db.NewInsert().
		Model(&Account{Address: string(address), RejectsPayments: reject, UpdatedAt: time.Now()}).
		On("CONFLICT (address) DO UPDATE").
		Set("rejects_payments = EXCLUDED.rejects_payments").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}
