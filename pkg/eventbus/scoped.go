package eventbus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishScoped publishes msg on {baseTopic}.{scope}. The oracle uses it to
// address a fulfillment to one consumer; the consumer subscribes to its own
// scoped subject only.
//
// Example:
//   - baseTopic: "oracle.randomness.fulfilled.v1"
//   - scope: "raffle-main"
//   - result: "oracle.randomness.fulfilled.v1.raffle-main"
func PublishScoped(bus message.Publisher, baseTopic, scope string, msg *message.Message) error {
	if scope == "" {
		return fmt.Errorf("scope cannot be empty for scoped publish")
	}
	return bus.Publish(FormatScopedTopic(baseTopic, scope), msg)
}

// FormatScopedTopic formats a scoped topic without publishing.
func FormatScopedTopic(baseTopic, scope string) string {
	return fmt.Sprintf("%s.%s", baseTopic, scope)
}
