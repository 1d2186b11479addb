// Package oracledomain models the local randomness coordinator: funded
// subscriptions, their consumers and the pending randomness requests.
package oracledomain

import (
	"slices"
	"time"
)

const (
	// MaxNumWords bounds the words one request may ask for.
	MaxNumWords uint32 = 500
	// MaxRequestConfirmations bounds the confirmation depth of a request.
	MaxRequestConfirmations uint16 = 200
	// MaxConsumers bounds the consumers registered on one subscription.
	MaxConsumers = 100
)

// Subscription is a prepaid balance shared by its consumers. Balance is in
// nano-LINK (1 LINK = 1e9).
type Subscription struct {
	ID           int64
	Owner        string
	Balance      int64
	RequestCount int64
	Consumers    []string
	CreatedAt    time.Time
}

// HasConsumer reports whether consumer may request randomness on s.
func (s *Subscription) HasConsumer(consumer string) bool {
	return slices.Contains(s.Consumers, consumer)
}

// AddConsumer registers consumer. Adding a consumer twice is a no-op.
func (s *Subscription) AddConsumer(consumer string) error {
	if consumer == "" {
		return ErrInvalidConsumer
	}
	if s.HasConsumer(consumer) {
		return nil
	}
	if len(s.Consumers) >= MaxConsumers {
		return ErrTooManyConsumers
	}
	s.Consumers = append(s.Consumers, consumer)
	return nil
}

// RemoveConsumer unregisters consumer.
func (s *Subscription) RemoveConsumer(consumer string) error {
	i := slices.Index(s.Consumers, consumer)
	if i < 0 {
		return ErrInvalidConsumer
	}
	s.Consumers = slices.Delete(s.Consumers, i, i+1)
	return nil
}

// Fund credits amount to the balance.
func (s *Subscription) Fund(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.Balance += amount
	return nil
}

// Charge debits a fulfillment payment.
func (s *Subscription) Charge(payment int64) error {
	if s.Balance < payment {
		return ErrInsufficientBalance
	}
	s.Balance -= payment
	return nil
}

// Request is an accepted randomness request waiting for fulfillment.
type Request struct {
	ID                   int64
	SubscriptionID       int64
	Consumer             string
	KeyHash              string
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	CreatedAt            time.Time
	FulfillAfter         time.Time
}

// RequestParams are the caller supplied fields of a request.
type RequestParams struct {
	KeyHash              string
	SubscriptionID       int64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	Consumer             string
}

// Validate checks params against the subscription they draw on. sub is nil
// when the subscription does not exist.
func (p RequestParams) Validate(sub *Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}
	if !sub.HasConsumer(p.Consumer) {
		return ErrInvalidConsumer
	}
	if p.RequestConfirmations > MaxRequestConfirmations {
		return ErrInvalidConfirmations
	}
	if p.NumWords > MaxNumWords {
		return ErrInvalidNumWords
	}
	return nil
}

// Pricing is the fee schedule of the coordinator, in nano-LINK.
type Pricing struct {
	BaseFee        int64
	GasPrice       int64
	FulfillmentGas int64
}

// Payment is the amount charged for one fulfillment.
func (p Pricing) Payment() int64 {
	return p.BaseFee + p.GasPrice*p.FulfillmentGas
}
