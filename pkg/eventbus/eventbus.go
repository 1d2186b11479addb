package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/hashicorp/go-multierror"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sethvargo/go-retry"
)

// EventBus is the publisher/subscriber pair handed to module routers.
type EventBus interface {
	message.Publisher
	message.Subscriber
	// CreateStream makes sure a JetStream stream exists for the given subjects.
	CreateStream(ctx context.Context, streamName string, subjects ...string) error
}

// Options tunes publishing.
type Options struct {
	PublishRetries uint64
	PublishBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.PublishRetries == 0 {
		o.PublishRetries = 3
	}
	if o.PublishBackoff <= 0 {
		o.PublishBackoff = 100 * time.Millisecond
	}
	return o
}

type natsEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	js         jetstream.JetStream
	conn       *nc.Conn
	logger     *slog.Logger
	opts       Options

	createdStreams map[string]bool
	streamMutex    sync.Mutex
}

// NewEventBus connects to NATS JetStream. appType prefixes durable consumer and
// queue group names so several services can share one server.
func NewEventBus(ctx context.Context, natsURL string, logger *slog.Logger, appType string, opts Options) (EventBus, error) {
	natsOptions := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in NATS subscription", slog.String("subject", s.Subject), slog.String("error", err.Error()))
				return
			}
			logger.Error("Error in NATS connection", slog.String("error", err.Error()))
		}),
	}

	conn, err := nc.Connect(natsURL, natsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:         natsURL,
			NatsOptions: natsOptions,
			Marshaler:   marshaler,
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(
		wmnats.SubscriberConfig{
			URL:              natsURL,
			QueueGroupPrefix: appType,
			SubscribersCount: 1,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     30 * time.Second,
			NatsOptions:      natsOptions,
			Unmarshaler:      marshaler,
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
				DurablePrefix: appType,
			},
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Event bus connected", slog.String("nats_url", natsURL), slog.String("app_type", appType))

	return &natsEventBus{
		publisher:      publisher,
		subscriber:     subscriber,
		js:             js,
		conn:           conn,
		logger:         logger,
		opts:           opts.withDefaults(),
		createdStreams: make(map[string]bool),
	}, nil
}

// Publish retries transient publish errors with exponential backoff.
func (eb *natsEventBus) Publish(topic string, messages ...*message.Message) error {
	return publishWithRetry(eb.publisher, eb.opts, topic, messages...)
}

func (eb *natsEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return eb.subscriber.Subscribe(ctx, topic)
}

func (eb *natsEventBus) CreateStream(ctx context.Context, streamName string, subjects ...string) error {
	eb.streamMutex.Lock()
	defer eb.streamMutex.Unlock()

	if eb.createdStreams[streamName] {
		return nil
	}

	_, err := eb.js.Stream(ctx, streamName)
	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := eb.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: subjects,
		}); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
		eb.logger.InfoContext(ctx, "Stream created", slog.String("stream_name", streamName), slog.Any("subjects", subjects))
	case err != nil:
		return fmt.Errorf("failed to check if stream %s exists: %w", streamName, err)
	}

	eb.createdStreams[streamName] = true
	return nil
}

func (eb *natsEventBus) Close() error {
	var result error
	if err := eb.subscriber.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close subscriber: %w", err))
	}
	if err := eb.publisher.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close publisher: %w", err))
	}
	if eb.conn != nil {
		eb.conn.Close()
	}
	return result
}

type memoryEventBus struct {
	*gochannel.GoChannel
	opts Options
}

// NewInMemoryEventBus returns a process-local bus. Used when no NATS URL is
// configured and in tests.
func NewInMemoryEventBus(logger *slog.Logger) EventBus {
	return &memoryEventBus{
		GoChannel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, watermill.NewSlogLogger(logger)),
		opts: Options{}.withDefaults(),
	}
}

func (m *memoryEventBus) Publish(topic string, messages ...*message.Message) error {
	return publishWithRetry(m.GoChannel, m.opts, topic, messages...)
}

func (m *memoryEventBus) CreateStream(context.Context, string, ...string) error {
	return nil
}

func publishWithRetry(pub message.Publisher, opts Options, topic string, messages ...*message.Message) error {
	backoff := retry.WithMaxRetries(opts.PublishRetries, retry.NewExponential(opts.PublishBackoff))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := pub.Publish(topic, messages...); err != nil {
			return retry.RetryableError(fmt.Errorf("failed to publish to %s: %w", topic, err))
		}
		return nil
	})
}
