package oracleservice

import (
	"context"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
)

// Service is the local randomness coordinator.
type Service interface {
	// Address is the public key fulfillments are signed with.
	Address() string

	CreateSubscription(ctx context.Context, owner string) (int64, error)
	FundSubscription(ctx context.Context, subID int64, amount int64) (*oracledomain.Subscription, error)
	AddConsumer(ctx context.Context, subID int64, caller, consumer string) error
	RemoveConsumer(ctx context.Context, subID int64, caller, consumer string) error
	GetSubscription(ctx context.Context, subID int64) (*oracledomain.Subscription, error)
	// Provision creates a funded subscription with consumer already added, or
	// returns the subscription of owner that already lists consumer.
	Provision(ctx context.Context, owner, consumer string, amount int64) (int64, error)

	// RequestRandomWords stores a request and schedules its fulfillment.
	RequestRandomWords(ctx context.Context, params oracledomain.RequestParams) (int64, error)
	// FulfillRandomWords charges the subscription, deletes the request and
	// delivers signed words to the consumer.
	FulfillRandomWords(ctx context.Context, requestID int64) (*Fulfillment, error)
	ListRequests(ctx context.Context, limit int) ([]*oracledomain.Request, error)
}
