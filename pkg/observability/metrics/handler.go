package metrics

import (
	"context"
	"time"
)

// HandlerMetrics records message handler outcomes as operations of one service.
type HandlerMetrics struct {
	ops     OperationMetrics
	service string
}

// NewHandlerMetrics reports handler outcomes through ops under service.
func NewHandlerMetrics(ops OperationMetrics, service string) *HandlerMetrics {
	return &HandlerMetrics{ops: ops, service: service}
}

func (m *HandlerMetrics) RecordHandlerAttempt(ctx context.Context, handlerName string) {
	m.ops.RecordOperationAttempt(ctx, handlerName, m.service)
}

func (m *HandlerMetrics) RecordHandlerSuccess(ctx context.Context, handlerName string) {
	m.ops.RecordOperationSuccess(ctx, handlerName, m.service)
}

func (m *HandlerMetrics) RecordHandlerFailure(ctx context.Context, handlerName string) {
	m.ops.RecordOperationFailure(ctx, handlerName, m.service)
}

func (m *HandlerMetrics) RecordHandlerDuration(ctx context.Context, handlerName string, duration time.Duration) {
	m.ops.RecordOperationDuration(ctx, handlerName, m.service, duration)
}
