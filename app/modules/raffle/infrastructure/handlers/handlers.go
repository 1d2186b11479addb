package rafflehandlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	"github.com/Black-And-White-Club/raffle/pkg/signing"
)

var (
	// ErrWrongConsumer is returned for a fulfillment addressed to another consumer.
	ErrWrongConsumer = errors.New("fulfillment addressed to another consumer")
	// ErrMalformedWords is returned when a fulfillment carries undecodable words.
	ErrMalformedWords = errors.New("malformed random words")
)

// RaffleHandlers handles raffle traffic for one configured raffle.
type RaffleHandlers struct {
	service raffleservice.Service
	raffle  uuid.UUID
	address raffledomain.Address
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRaffleHandlers creates the bus handlers of the raffle at address.
func NewRaffleHandlers(
	service raffleservice.Service,
	raffleID uuid.UUID,
	address raffledomain.Address,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &RaffleHandlers{
		service: service,
		raffle:  raffleID,
		address: address,
		logger:  logger,
		tracer:  tracer,
	}
}

// fulfillSigned verifies a signed delivery and hands it to the raffle with the
// signer as caller. Bus and HTTP deliveries share it.
func fulfillSigned(
	ctx context.Context,
	service raffleservice.Service,
	address raffledomain.Address,
	payload *oracleevents.RandomWordsFulfilledPayloadV1,
) (*raffleservice.FulfillResult, error) {
	if payload.Consumer != string(address) {
		return nil, fmt.Errorf("%w: %s", ErrWrongConsumer, payload.Consumer)
	}
	if err := signing.Verify(payload.Oracle, payload.SigningBytes(), payload.Signature); err != nil {
		return nil, err
	}
	words, ok := oracledomain.DecodeWords(payload.RandomWords)
	if !ok {
		return nil, ErrMalformedWords
	}
	return service.FulfillRandomWords(ctx, raffledomain.Address(payload.Oracle), raffledomain.RequestID(payload.RequestID), words)
}

// isEntryRejection reports errors that reject an entry without touching state.
func isEntryRejection(err error) bool {
	return errors.Is(err, raffledomain.ErrInsufficientEntranceFee) ||
		errors.Is(err, raffledomain.ErrNotOpen) ||
		errors.Is(err, raffledomain.ErrPotOverflow) ||
		errors.Is(err, raffledomain.ErrInvalidAddress)
}

// isFulfillmentRejection reports errors after which redelivering the same
// fulfillment cannot succeed.
func isFulfillmentRejection(err error) bool {
	return errors.Is(err, raffledomain.ErrOnlyCoordinatorCanFulfill) ||
		errors.Is(err, raffledomain.ErrRequestMismatch) ||
		errors.Is(err, raffledomain.ErrNoRandomWords) ||
		errors.Is(err, raffledomain.ErrNoPlayers) ||
		errors.Is(err, raffledomain.ErrTransferFailed) ||
		errors.Is(err, raffledomain.ErrInvalidAddress) ||
		errors.Is(err, signing.ErrInvalidSignature) ||
		errors.Is(err, signing.ErrInvalidPublicKey) ||
		errors.Is(err, ErrWrongConsumer) ||
		errors.Is(err, ErrMalformedWords)
}
