package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

// PublishPayload publishes payload on topic as a new message. The correlation id
// carried by ctx, if any, replaces the generated one.
func PublishPayload(ctx context.Context, pub message.Publisher, helpers utils.Helpers, topic string, payload any) error {
	msg, err := helpers.CreateNewMessage(payload, topic)
	if err != nil {
		return err
	}
	if id := attr.CorrelationIDFromContext(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	msg.SetContext(ctx)
	return pub.Publish(topic, msg)
}
