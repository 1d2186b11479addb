package oracledb

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
)

// Repository persists subscriptions, consumers and pending requests.
//
// Error semantics:
//   - ErrSubscriptionNotFound / ErrRequestNotFound: the row does not exist
//   - Other errors: infrastructure failures
type Repository interface {
	CreateSubscription(ctx context.Context, db bun.IDB, owner string, at time.Time) (int64, error)
	GetSubscription(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Subscription, error)
	// GetSubscriptionForUpdate locks the subscription row until the transaction ends.
	GetSubscriptionForUpdate(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Subscription, error)
	// FindSubscription returns the oldest subscription of owner that lists consumer.
	FindSubscription(ctx context.Context, db bun.IDB, owner, consumer string) (int64, error)
	// UpdateSubscription writes balance and request count.
	UpdateSubscription(ctx context.Context, db bun.IDB, sub *oracledomain.Subscription) error

	AddConsumer(ctx context.Context, db bun.IDB, subID int64, consumer string, at time.Time) error
	RemoveConsumer(ctx context.Context, db bun.IDB, subID int64, consumer string) error

	// InsertRequest stores req and returns the assigned id.
	InsertRequest(ctx context.Context, db bun.IDB, req *oracledomain.Request) (int64, error)
	GetRequestForUpdate(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Request, error)
	DeleteRequest(ctx context.Context, db bun.IDB, id int64) error
	// ListRequests returns pending requests, oldest first.
	ListRequests(ctx context.Context, db bun.IDB, limit int) ([]*oracledomain.Request, error)
}
