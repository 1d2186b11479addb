// Package handlerwrapper adapts typed payload handlers to watermill.
package handlerwrapper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

type ctxKey string

// CtxKeyMetadata carries the incoming message metadata into the handler context.
const CtxKeyMetadata ctxKey = "message_metadata"

// Result is one outgoing message produced by a handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// ReturningMetrics records handler outcomes. A nil value disables recording.
type ReturningMetrics interface {
	RecordHandlerAttempt(ctx context.Context, handlerName string)
	RecordHandlerSuccess(ctx context.Context, handlerName string)
	RecordHandlerFailure(ctx context.Context, handlerName string)
	RecordHandlerDuration(ctx context.Context, handlerName string, duration time.Duration)
}

// MetadataFromContext returns the metadata of the message being handled.
func MetadataFromContext(ctx context.Context) message.Metadata {
	if md, ok := ctx.Value(CtxKeyMetadata).(message.Metadata); ok {
		return md
	}
	return message.Metadata{}
}

// WrapTransformingTyped decodes the message into *T, calls handler and publishes
// every returned Result. Returning an error nacks the incoming message.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	helpers utils.Helpers,
	metrics ReturningMetrics,
	publisher message.Publisher,
	handler func(context.Context, *T) ([]Result, error),
) message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		ctx := msg.Context()
		ctx = attr.WithCorrelationID(ctx, middleware.MessageCorrelationID(msg))
		ctx = context.WithValue(ctx, CtxKeyMetadata, msg.Metadata)

		var span trace.Span
		if tracer != nil {
			ctx, span = tracer.Start(ctx, handlerName, trace.WithAttributes(
				attribute.String("message.uuid", msg.UUID),
			))
		} else {
			span = trace.SpanFromContext(ctx)
		}
		defer span.End()

		start := time.Now()
		if metrics != nil {
			metrics.RecordHandlerAttempt(ctx, handlerName)
			defer func() {
				metrics.RecordHandlerDuration(ctx, handlerName, time.Since(start))
				if err != nil {
					metrics.RecordHandlerFailure(ctx, handlerName)
				} else {
					metrics.RecordHandlerSuccess(ctx, handlerName)
				}
			}()
		}

		payload := new(T)
		if err := helpers.UnmarshalPayload(msg, payload); err != nil {
			// Malformed payloads are dropped, not redelivered.
			logger.ErrorContext(ctx, "Dropping message with malformed payload",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			span.SetStatus(codes.Error, "malformed payload")
			return nil
		}

		out, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Handler failed",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("%s: %w", handlerName, err)
		}

		for _, r := range out {
			resultMsg, err := helpers.CreateResultMessage(msg, r.Payload, r.Topic)
			if err != nil {
				span.RecordError(err)
				return fmt.Errorf("%s: failed to create result message: %w", handlerName, err)
			}
			for k, v := range r.Metadata {
				resultMsg.Metadata.Set(k, v)
			}
			if err := publisher.Publish(r.Topic, resultMsg); err != nil {
				span.RecordError(err)
				return fmt.Errorf("%s: failed to publish %s: %w", handlerName, r.Topic, err)
			}
		}

		logger.DebugContext(ctx, "Handler completed",
			attr.ExtractCorrelationID(ctx),
			attr.String("handler", handlerName),
			attr.Int("results", len(out)),
		)
		return nil
	}
}
