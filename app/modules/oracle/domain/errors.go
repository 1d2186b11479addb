package oracledomain

import "errors"

var (
	ErrInvalidSubscription  = errors.New("invalid subscription")
	ErrInvalidConsumer      = errors.New("invalid consumer")
	ErrInvalidNumWords      = errors.New("invalid number of random words")
	ErrInvalidConfirmations = errors.New("invalid request confirmations")
	ErrNonexistentRequest   = errors.New("nonexistent request")
	ErrInsufficientBalance  = errors.New("insufficient subscription balance")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMustBeSubOwner       = errors.New("must be subscription owner")
	ErrTooManyConsumers     = errors.New("too many consumers")
)
