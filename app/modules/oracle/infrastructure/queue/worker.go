package oraclequeue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	oracleservice "github.com/Black-And-White-Club/raffle/app/modules/oracle/application"
	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
)

// Fulfiller is the part of the oracle service the worker drives.
type Fulfiller interface {
	FulfillRandomWords(ctx context.Context, requestID int64) (*oracleservice.Fulfillment, error)
}

// settleWindow is how long after insertion a missing request is assumed to be
// uncommitted rather than already answered. The job is inserted through
// River's pool while the request row is still in the oracle transaction.
const (
	settleWindow = 10 * time.Second
	settleSnooze = 250 * time.Millisecond
)

// FulfillRandomWordsWorker answers a scheduled request.
type FulfillRandomWordsWorker struct {
	river.WorkerDefaults[FulfillRandomWordsJob]
	logger    *slog.Logger
	fulfiller Fulfiller
	now       func() time.Time
}

func NewFulfillRandomWordsWorker(logger *slog.Logger, fulfiller Fulfiller) *FulfillRandomWordsWorker {
	return &FulfillRandomWordsWorker{logger: logger, fulfiller: fulfiller, now: time.Now}
}

// Work fulfills the request. A request missing shortly after the job was
// inserted may not be committed yet, so the job snoozes. Later on a missing
// request was answered by an earlier attempt or manually, so the job
// completes. An empty subscription is retried with backoff until it is funded.
func (w *FulfillRandomWordsWorker) Work(ctx context.Context, job *river.Job[FulfillRandomWordsJob]) error {
	logger := w.logger.With(
		attr.Int64("job_id", job.ID),
		attr.Int64("request_id", job.Args.RequestID),
		attr.Int("attempt", job.Attempt),
	)

	f, err := w.fulfiller.FulfillRandomWords(ctx, job.Args.RequestID)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Fulfillment delivered",
			attr.String("topic", f.Topic),
			attr.Int64("payment", f.Payment),
		)
		return nil
	case errors.Is(err, oracledomain.ErrNonexistentRequest) && w.now().Sub(job.CreatedAt) < settleWindow:
		logger.InfoContext(ctx, "Request not visible yet, snoozing")
		return river.JobSnooze(settleSnooze)
	case errors.Is(err, oracledomain.ErrNonexistentRequest):
		logger.InfoContext(ctx, "Request already fulfilled, skipping")
		return nil
	case errors.Is(err, oracledomain.ErrInvalidSubscription):
		logger.ErrorContext(ctx, "Subscription missing, cancelling fulfillment", attr.Error(err))
		return river.JobCancel(err)
	case errors.Is(err, oracledomain.ErrInsufficientBalance):
		logger.WarnContext(ctx, "Subscription balance too low, will retry", attr.Error(err))
		return err
	default:
		logger.ErrorContext(ctx, "Fulfillment failed", attr.Error(err))
		return err
	}
}

// Timeout bounds a single fulfillment attempt.
func (w *FulfillRandomWordsWorker) Timeout(*river.Job[FulfillRandomWordsJob]) time.Duration {
	return 30 * time.Second
}
