package utils

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// TopicMetadataKey is the metadata key that records the topic a message was created for.
const TopicMetadataKey = "topic"

// Helpers builds and decodes bus messages.
type Helpers interface {
	CreateNewMessage(payload any, topic string) (*message.Message, error)
	CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error)
	UnmarshalPayload(msg *message.Message, payload any) error
}

type helpers struct{}

// NewHelper returns the default JSON Helpers.
func NewHelper() Helpers {
	return helpers{}
}

// CreateNewMessage marshals payload into a new message with a fresh correlation id.
func (helpers) CreateNewMessage(payload any, topic string) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(TopicMetadataKey, topic)
	middleware.SetCorrelationID(watermill.NewUUID(), msg)
	return msg, nil
}

// CreateResultMessage marshals payload into a message that keeps the correlation
// id and metadata of original.
func (helpers) CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if original != nil {
		for k, v := range original.Metadata {
			msg.Metadata.Set(k, v)
		}
	}
	msg.Metadata.Set(TopicMetadataKey, topic)

	correlationID := ""
	if original != nil {
		correlationID = middleware.MessageCorrelationID(original)
	}
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)
	return msg, nil
}

// UnmarshalPayload decodes the JSON payload of msg into payload.
func (helpers) UnmarshalPayload(msg *message.Message, payload any) error {
	if msg == nil {
		return fmt.Errorf("nil message")
	}
	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
