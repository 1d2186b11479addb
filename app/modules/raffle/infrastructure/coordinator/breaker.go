package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
)

// ErrCoordinatorUnavailable is returned while the breaker is open.
var ErrCoordinatorUnavailable = errors.New("randomness coordinator unavailable")

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// Breaker stops calling a failing coordinator. Rejections by the coordinator
// itself (bad subscription, consumer or parameters) do not count as failures.
type Breaker struct {
	next raffleservice.Coordinator
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next raffleservice.Coordinator, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	cfg = cfg.withDefaults()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "randomness-coordinator",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				attr.String("breaker", name),
				attr.String("from", from.String()),
				attr.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isRejection(err)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func isRejection(err error) bool {
	return errors.Is(err, oracledomain.ErrInvalidSubscription) ||
		errors.Is(err, oracledomain.ErrInvalidConsumer) ||
		errors.Is(err, oracledomain.ErrInvalidNumWords) ||
		errors.Is(err, oracledomain.ErrInvalidConfirmations)
}

func (b *Breaker) RequestRandomWords(ctx context.Context, req raffleservice.RandomWordsRequest) (raffledomain.RequestID, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.RequestRandomWords(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %w", ErrCoordinatorUnavailable, err)
	}
	if err != nil {
		return 0, err
	}
	return out.(raffledomain.RequestID), nil
}

// State reports the breaker state for health checks.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

var _ raffleservice.Coordinator = (*Breaker)(nil)
