package oracledb

import (
	"time"

	"github.com/uptrace/bun"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
)

// Subscription is the prepaid balance row.
type Subscription struct {
	bun.BaseModel `bun:"table:vrf_subscriptions,alias:s"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Owner        string    `bun:"owner,notnull"`
	Balance      int64     `bun:"balance,notnull"`
	RequestCount int64     `bun:"request_count,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Consumer allows an address to draw on a subscription.
type Consumer struct {
	bun.BaseModel `bun:"table:vrf_consumers,alias:c"`

	SubscriptionID int64     `bun:"subscription_id,pk"`
	Consumer       string    `bun:"consumer,pk"`
	AddedAt        time.Time `bun:"added_at,nullzero,notnull,default:current_timestamp"`
}

// Request is a randomness request waiting for fulfillment. Fulfilled requests
// are deleted.
type Request struct {
	bun.BaseModel `bun:"table:vrf_requests,alias:r"`

	ID                   int64     `bun:"id,pk,autoincrement"`
	SubscriptionID       int64     `bun:"subscription_id,notnull"`
	Consumer             string    `bun:"consumer,notnull"`
	KeyHash              string    `bun:"key_hash,notnull"`
	RequestConfirmations int       `bun:"request_confirmations,notnull"`
	CallbackGasLimit     int64     `bun:"callback_gas_limit,notnull"`
	NumWords             int64     `bun:"num_words,notnull"`
	CreatedAt            time.Time `bun:"created_at,notnull"`
	FulfillAfter         time.Time `bun:"fulfill_after,notnull"`
}

func (s *Subscription) toDomain(consumers []Consumer) *oracledomain.Subscription {
	out := &oracledomain.Subscription{
		ID:           s.ID,
		Owner:        s.Owner,
		Balance:      s.Balance,
		RequestCount: s.RequestCount,
		Consumers:    make([]string, 0, len(consumers)),
		CreatedAt:    s.CreatedAt,
	}
	for _, c := range consumers {
		out.Consumers = append(out.Consumers, c.Consumer)
	}
	return out
}

func requestFromDomain(r *oracledomain.Request) *Request {
	return &Request{
		ID:                   r.ID,
		SubscriptionID:       r.SubscriptionID,
		Consumer:             r.Consumer,
		KeyHash:              r.KeyHash,
		RequestConfirmations: int(r.RequestConfirmations),
		CallbackGasLimit:     int64(r.CallbackGasLimit),
		NumWords:             int64(r.NumWords),
		CreatedAt:            r.CreatedAt,
		FulfillAfter:         r.FulfillAfter,
	}
}

func (r *Request) toDomain() *oracledomain.Request {
	return &oracledomain.Request{
		ID:                   r.ID,
		SubscriptionID:       r.SubscriptionID,
		Consumer:             r.Consumer,
		KeyHash:              r.KeyHash,
		RequestConfirmations: uint16(r.RequestConfirmations),
		CallbackGasLimit:     uint32(r.CallbackGasLimit),
		NumWords:             uint32(r.NumWords),
		CreatedAt:            r.CreatedAt,
		FulfillAfter:         r.FulfillAfter,
	}
}
