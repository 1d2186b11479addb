package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

type fakeOracle struct {
	params []oracledomain.RequestParams
	err    error
}

func (f *fakeOracle) RequestRandomWords(ctx context.Context, params oracledomain.RequestParams) (int64, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.params)), nil
}

func testRequest() raffleservice.RandomWordsRequest {
	return raffleservice.RandomWordsRequest{
		KeyHash:              "0xabc",
		SubscriptionID:       1,
		RequestConfirmations: raffledomain.RequestConfirmations,
		CallbackGasLimit:     500000,
		NumWords:             raffledomain.NumWords,
		Consumer:             "raffle-main",
	}
}

func TestLocal_RequestRandomWords(t *testing.T) {
	oracle := &fakeOracle{}
	id, err := NewLocal(oracle).RequestRandomWords(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, raffledomain.RequestID(1), id)

	require.Len(t, oracle.params, 1)
	assert.Equal(t, oracledomain.RequestParams{
		KeyHash:              "0xabc",
		SubscriptionID:       1,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             1,
		Consumer:             "raffle-main",
	}, oracle.params[0])
}

func TestBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("trips after consecutive failures", func(t *testing.T) {
		oracle := &fakeOracle{err: errors.New("db down")}
		b := NewBreaker(NewLocal(oracle), BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Hour}, slog.Default())

		for i := 0; i < 2; i++ {
			_, err := b.RequestRandomWords(ctx, testRequest())
			assert.EqualError(t, err, "db down")
		}
		assert.Equal(t, "open", b.State())

		_, err := b.RequestRandomWords(ctx, testRequest())
		assert.ErrorIs(t, err, ErrCoordinatorUnavailable)
		assert.Len(t, oracle.params, 2)
	})

	t.Run("rejections do not trip", func(t *testing.T) {
		oracle := &fakeOracle{err: oracledomain.ErrInvalidConsumer}
		b := NewBreaker(NewLocal(oracle), BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Hour}, slog.Default())

		for i := 0; i < 3; i++ {
			_, err := b.RequestRandomWords(ctx, testRequest())
			assert.ErrorIs(t, err, oracledomain.ErrInvalidConsumer)
		}
		assert.Equal(t, "closed", b.State())
	})

	t.Run("passes ids through", func(t *testing.T) {
		b := NewBreaker(NewLocal(&fakeOracle{}), BreakerConfig{}, slog.Default())
		id, err := b.RequestRandomWords(ctx, testRequest())
		require.NoError(t, err)
		assert.Equal(t, raffledomain.RequestID(1), id)
	})
}
