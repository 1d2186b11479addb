package oraclehandlers

import (
	"context"

	oracleservice "github.com/Black-And-White-Club/raffle/app/modules/oracle/application"
	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
)

// FakeService records calls and returns what the Func fields return.
type FakeService struct {
	trace []string

	CreateSubscriptionFunc func(ctx context.Context, owner string) (int64, error)
	FundSubscriptionFunc   func(ctx context.Context, subID int64, amount int64) (*oracledomain.Subscription, error)
	AddConsumerFunc        func(ctx context.Context, subID int64, caller, consumer string) error
	RemoveConsumerFunc     func(ctx context.Context, subID int64, caller, consumer string) error
	GetSubscriptionFunc    func(ctx context.Context, subID int64) (*oracledomain.Subscription, error)
	FulfillRandomWordsFunc func(ctx context.Context, requestID int64) (*oracleservice.Fulfillment, error)
	ListRequestsFunc       func(ctx context.Context, limit int) ([]*oracledomain.Request, error)
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) Trace() []string {
	return f.trace
}

func (f *FakeService) Address() string {
	return "ORACLEPUBKEY"
}

func (f *FakeService) CreateSubscription(ctx context.Context, owner string) (int64, error) {
	f.record("CreateSubscription")
	if f.CreateSubscriptionFunc != nil {
		return f.CreateSubscriptionFunc(ctx, owner)
	}
	return 1, nil
}

func (f *FakeService) FundSubscription(ctx context.Context, subID int64, amount int64) (*oracledomain.Subscription, error) {
	f.record("FundSubscription")
	if f.FundSubscriptionFunc != nil {
		return f.FundSubscriptionFunc(ctx, subID, amount)
	}
	return &oracledomain.Subscription{ID: subID, Balance: amount}, nil
}

func (f *FakeService) AddConsumer(ctx context.Context, subID int64, caller, consumer string) error {
	f.record("AddConsumer")
	if f.AddConsumerFunc != nil {
		return f.AddConsumerFunc(ctx, subID, caller, consumer)
	}
	return nil
}

func (f *FakeService) RemoveConsumer(ctx context.Context, subID int64, caller, consumer string) error {
	f.record("RemoveConsumer")
	if f.RemoveConsumerFunc != nil {
		return f.RemoveConsumerFunc(ctx, subID, caller, consumer)
	}
	return nil
}

func (f *FakeService) GetSubscription(ctx context.Context, subID int64) (*oracledomain.Subscription, error) {
	f.record("GetSubscription")
	if f.GetSubscriptionFunc != nil {
		return f.GetSubscriptionFunc(ctx, subID)
	}
	return &oracledomain.Subscription{ID: subID}, nil
}

func (f *FakeService) Provision(ctx context.Context, owner, consumer string, amount int64) (int64, error) {
	f.record("Provision")
	return 1, nil
}

func (f *FakeService) RequestRandomWords(ctx context.Context, params oracledomain.RequestParams) (int64, error) {
	f.record("RequestRandomWords")
	return 1, nil
}

func (f *FakeService) FulfillRandomWords(ctx context.Context, requestID int64) (*oracleservice.Fulfillment, error) {
	f.record("FulfillRandomWords")
	if f.FulfillRandomWordsFunc != nil {
		return f.FulfillRandomWordsFunc(ctx, requestID)
	}
	return &oracleservice.Fulfillment{RequestID: requestID}, nil
}

func (f *FakeService) ListRequests(ctx context.Context, limit int) ([]*oracledomain.Request, error) {
	f.record("ListRequests")
	if f.ListRequestsFunc != nil {
		return f.ListRequestsFunc(ctx, limit)
	}
	return []*oracledomain.Request{}, nil
}

var _ oracleservice.Service = (*FakeService)(nil)
