package oracleservice

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	oracledb "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/repositories"
)

// ------------------------
// Fake Oracle Repo
// ------------------------

// FakeOracleRepo is an in-memory Repository.
type FakeOracleRepo struct {
	trace []string

	subs      map[int64]*oracledomain.Subscription
	requests  map[int64]*oracledomain.Request
	nextSubID int64
	nextReqID int64

	InsertRequestFunc      func(ctx context.Context, db bun.IDB, req *oracledomain.Request) (int64, error)
	UpdateSubscriptionFunc func(ctx context.Context, db bun.IDB, sub *oracledomain.Subscription) error
}

func NewFakeOracleRepo() *FakeOracleRepo {
	return &FakeOracleRepo{
		trace:    []string{},
		subs:     map[int64]*oracledomain.Subscription{},
		requests: map[int64]*oracledomain.Request{},
	}
}

func (f *FakeOracleRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeOracleRepo) Trace() []string {
	return f.trace
}

func cloneSub(s *oracledomain.Subscription) *oracledomain.Subscription {
	c := *s
	c.Consumers = slices.Clone(s.Consumers)
	return &c
}

func (f *FakeOracleRepo) CreateSubscription(ctx context.Context, db bun.IDB, owner string, at time.Time) (int64, error) {
	f.record("CreateSubscription")
	f.nextSubID++
	f.subs[f.nextSubID] = &oracledomain.Subscription{ID: f.nextSubID, Owner: owner, CreatedAt: at}
	return f.nextSubID, nil
}

func (f *FakeOracleRepo) GetSubscription(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Subscription, error) {
	f.record("GetSubscription")
	sub, ok := f.subs[id]
	if !ok {
		return nil, oracledb.ErrSubscriptionNotFound
	}
	return cloneSub(sub), nil
}

func (f *FakeOracleRepo) GetSubscriptionForUpdate(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Subscription, error) {
	f.record("GetSubscriptionForUpdate")
	sub, ok := f.subs[id]
	if !ok {
		return nil, oracledb.ErrSubscriptionNotFound
	}
	return cloneSub(sub), nil
}

func (f *FakeOracleRepo) FindSubscription(ctx context.Context, db bun.IDB, owner, consumer string) (int64, error) {
	f.record("FindSubscription")
	ids := make([]int64, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if sub := f.subs[id]; sub.Owner == owner && sub.HasConsumer(consumer) {
			return id, nil
		}
	}
	return 0, oracledb.ErrSubscriptionNotFound
}

func (f *FakeOracleRepo) UpdateSubscription(ctx context.Context, db bun.IDB, sub *oracledomain.Subscription) error {
	f.record("UpdateSubscription")
	if f.UpdateSubscriptionFunc != nil {
		return f.UpdateSubscriptionFunc(ctx, db, sub)
	}
	stored, ok := f.subs[sub.ID]
	if !ok {
		return oracledb.ErrSubscriptionNotFound
	}
	stored.Balance = sub.Balance
	stored.RequestCount = sub.RequestCount
	return nil
}

func (f *FakeOracleRepo) AddConsumer(ctx context.Context, db bun.IDB, subID int64, consumer string, at time.Time) error {
	f.record("AddConsumer")
	stored := f.subs[subID]
	if !stored.HasConsumer(consumer) {
		stored.Consumers = append(stored.Consumers, consumer)
	}
	return nil
}

func (f *FakeOracleRepo) RemoveConsumer(ctx context.Context, db bun.IDB, subID int64, consumer string) error {
	f.record("RemoveConsumer")
	stored := f.subs[subID]
	stored.Consumers = slices.DeleteFunc(stored.Consumers, func(c string) bool { return c == consumer })
	return nil
}

func (f *FakeOracleRepo) InsertRequest(ctx context.Context, db bun.IDB, req *oracledomain.Request) (int64, error) {
	f.record("InsertRequest")
	if f.InsertRequestFunc != nil {
		return f.InsertRequestFunc(ctx, db, req)
	}
	f.nextReqID++
	c := *req
	c.ID = f.nextReqID
	f.requests[c.ID] = &c
	return c.ID, nil
}

func (f *FakeOracleRepo) GetRequestForUpdate(ctx context.Context, db bun.IDB, id int64) (*oracledomain.Request, error) {
	f.record("GetRequestForUpdate")
	req, ok := f.requests[id]
	if !ok {
		return nil, oracledb.ErrRequestNotFound
	}
	c := *req
	return &c, nil
}

func (f *FakeOracleRepo) DeleteRequest(ctx context.Context, db bun.IDB, id int64) error {
	f.record("DeleteRequest")
	if _, ok := f.requests[id]; !ok {
		return oracledb.ErrRequestNotFound
	}
	delete(f.requests, id)
	return nil
}

func (f *FakeOracleRepo) ListRequests(ctx context.Context, db bun.IDB, limit int) ([]*oracledomain.Request, error) {
	f.record("ListRequests")
	out := make([]*oracledomain.Request, 0, len(f.requests))
	for _, r := range f.requests {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ oracledb.Repository = (*FakeOracleRepo)(nil)

// ------------------------
// Fake Scheduler
// ------------------------

type scheduled struct {
	RequestID int64
	At        time.Time
}

type FakeScheduler struct {
	jobs []scheduled

	ScheduleFulfillmentFunc func(ctx context.Context, requestID int64, at time.Time) error
}

func (f *FakeScheduler) ScheduleFulfillment(ctx context.Context, requestID int64, at time.Time) error {
	if f.ScheduleFulfillmentFunc != nil {
		return f.ScheduleFulfillmentFunc(ctx, requestID, at)
	}
	f.jobs = append(f.jobs, scheduled{RequestID: requestID, At: at})
	return nil
}

var _ Scheduler = (*FakeScheduler)(nil)

// ------------------------
// Recording Publisher
// ------------------------

type recordingPublisher struct {
	published map[string][]*message.Message
	err       error
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = map[string][]*message.Message{}
	}
	p.published[topic] = append(p.published[topic], msgs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
