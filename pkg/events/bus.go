package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Topic carries every session event.
const Topic = "moodchat.session"

// Settings selects the bus transport.
type Settings struct {
	RedisEnabled bool   `yaml:"redis_enabled"`
	RedisAddr    string `yaml:"redis_addr"`
	Group        string `yaml:"redis_group"`
	Consumer     string `yaml:"redis_consumer"`
}

func (s Settings) withDefaults() Settings {
	if s.RedisAddr == "" {
		s.RedisAddr = "localhost:6379"
	}
	if s.Group == "" {
		s.Group = "moodchat"
	}
	if s.Consumer == "" {
		s.Consumer = "ui-1"
	}
	return s
}

// Bus publishes session events on a watermill transport. It implements Sink.
type Bus struct {
	settings Settings
	pub      message.Publisher
	// local is set for the in-memory transport, where one GoChannel serves both sides.
	local  *gochannel.GoChannel
	redis  *redis.Client
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	subs   []message.Subscriber
	closed bool
}

var _ Sink = &Bus{}

// NewBus builds an in-memory bus, or a Redis Streams bus when settings.RedisEnabled.
func NewBus(settings Settings) (*Bus, error) {
	settings = settings.withDefaults()
	logger := newZerologAdapter()
	b := &Bus{settings: settings, logger: logger}

	if !settings.RedisEnabled {
		// Blocking until ack keeps subscribers in publish order.
		b.local = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		}, logger)
		b.pub = b.local
		return b, nil
	}

	b.redis = redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     b.redis,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, logger)
	if err != nil {
		_ = b.redis.Close()
		return nil, errors.Wrap(err, "create redis stream publisher")
	}
	b.pub = pub
	log.Info().Str("component", "events").Str("addr", settings.RedisAddr).Msg("using redis streams event bus")
	return b, nil
}

// Publish encodes e and sends it on Topic. Failures are logged.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("component", "events").Str("type", string(e.Type)).Msg("failed to encode event")
		return
	}
	id := e.ID
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	msg.Metadata.Set("type", string(e.Type))
	if err := b.pub.Publish(Topic, msg); err != nil {
		log.Warn().Err(err).Str("component", "events").Str("type", string(e.Type)).Msg("failed to publish event")
	}
}

// Subscribe streams decoded events until ctx is done. name identifies the consumer;
// on Redis each name gets its own consumer group so every consumer sees every event.
func (b *Bus) Subscribe(ctx context.Context, name string) (<-chan Event, error) {
	if b == nil {
		return nil, errors.New("event bus is nil")
	}
	sub, err := b.subscriber(ctx, name)
	if err != nil {
		return nil, err
	}
	msgs, err := sub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to session events")
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				log.Warn().Err(err).Str("component", "events").Str("subscriber", name).Msg("failed to decode event")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) subscriber(ctx context.Context, name string) (message.Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("event bus is closed")
	}
	if b.local != nil {
		return b.local, nil
	}

	group := b.settings.Group
	if name = strings.TrimSpace(name); name != "" {
		group += "." + name
	}
	if err := ensureGroupAtTail(ctx, b.redis, Topic, group); err != nil {
		return nil, err
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        b.redis,
		Unmarshaller:  rstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: group,
		Consumer:      b.settings.Consumer,
	}, b.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create redis stream subscriber")
	}
	b.subs = append(b.subs, sub)
	return sub, nil
}

// ensureGroupAtTail creates the consumer group at "$" so a new consumer does not replay old sessions.
func ensureGroupAtTail(ctx context.Context, client *redis.Client, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrapf(err, "create consumer group %s", group)
	}
	return nil
}

func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var firstErr error
	for _, s := range subs {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.pub.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
