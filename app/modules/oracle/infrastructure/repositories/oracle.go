package oracledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrRequestNotFound      = errors.New("request not found")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new oracle repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) CreateSubscription(ctx context.Context, db bun.IDB, owner string, at time.Time) (int64, error) {
	db = r.resolveDB(db)
	sub := &Subscription{Owner: owner, CreatedAt: at, UpdatedAt: at}
	if _, err := db.NewInsert().Model(sub).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub.ID, nil
}

func (r *Impl) GetSubscription(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Subscription, error) {
	return r.getSubscription(ctx, r.resolveDB(db), id, false)
}

func (r *Impl) GetSubscriptionForUpdate(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Subscription, error) {
	return r.getSubscription(ctx, r.resolveDB(db), id, true)
}

func (r *Impl) getSubscription(ctx context.Context, db bun.IDB, id int64, lock bool) (*oracledomain.Subscription, error) {
	sub := new(Subscription)
	q := db.NewSelect().Model(sub).Where("id = ?", id)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	var consumers []Consumer
	err := db.NewSelect().
		Model(&consumers).
		Where("subscription_id = ?", id).
		Order("added_at ASC", "consumer ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get consumers: %w", err)
	}
	return sub.toDomain(consumers), nil
}

func (r *Impl) FindSubscription(ctx context.Context, db bun.IDB, owner, consumer string) (int64, error) {
	db = r.resolveDB(db)
	var id int64
	err := db.NewSelect().
		Model((*Subscription)(nil)).
		Column("s.id").
		Join("JOIN vrf_consumers AS c ON c.subscription_id = s.id").
		Where("s.owner = ?", owner).
		Where("c.consumer = ?", consumer).
		Order("s.id ASC").
		Limit(1).
		Scan(ctx, &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSubscriptionNotFound
		}
		return 0, fmt.Errorf("failed to find subscription: %w", err)
	}
	return id, nil
}

func (r *Impl) UpdateSubscription(ctx context.Context, db bun.IDB, sub *oracledomain.Subscription) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Subscription)(nil)).
		Set("balance = ?", sub.Balance).
		Set("request_count = ?", sub.RequestCount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", sub.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *Impl) AddConsumer(ctx context.Context, db bun.IDB, subID int64, consumer string, at time.Time) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&Consumer{SubscriptionID: subID, Consumer: consumer, AddedAt: at}).
		On("CONFLICT (subscription_id, consumer) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add consumer: %w", err)
	}
	return nil
}

func (r *Impl) RemoveConsumer(ctx context.Context, db bun.IDB, subID int64, consumer string) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Consumer)(nil)).
		Where("subscription_id = ?", subID).
		Where("consumer = ?", consumer).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove consumer: %w", err)
	}
	return nil
}

func (r *Impl) InsertRequest(ctx context.Context, db bun.IDB, req *oracledomain.Request) (int64, error) {
	db = r.resolveDB(db)
	model := requestFromDomain(req)
	model.ID = 0
	if _, err := db.NewInsert().Model(model).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert request: %w", err)
	}
	return model.ID, nil
}

func (r *Impl) GetRequestForUpdate(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Request, error) {
	db = r.resolveDB(db)
	req := new(Request)
	err := db.NewSelect().
		Model(req).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req.toDomain(), nil
}

func (r *Impl) DeleteRequest(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*Request)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (r *Impl) ListRequests(ctx context.Context, db bun.IDB, limit int) ([]*oracledomain.Request, error) {
	db = r.resolveDB(db)
	var rows []Request
	q := db.NewSelect().Model(&rows).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	out := make([]*oracledomain.Request, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
