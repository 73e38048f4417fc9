package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// envelope tags relayed events with the publishing instance so a bridge does
// not deliver its own events twice.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge fans hub events out to peer instances over Redis pub/sub and
// relays their events into the local hub.
type RedisBridge struct {
	client   *redis.Client
	prefix   string
	instance string
	log      zerolog.Logger
}

// NewRedisBridge parses url, checks the connection and returns a bridge.
func NewRedisBridge(ctx context.Context, url, prefix string, log zerolog.Logger) (*RedisBridge, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisBridge{
		client:   client,
		prefix:   prefix,
		instance: uuid.NewString(),
		log:      log.With().Str("component", "redis-bridge").Logger(),
	}, nil
}

// Name implements Sink.
func (b *RedisBridge) Name() string { return "redis" }

// Send implements Sink.
func (b *RedisBridge) Send(ctx context.Context, ev Event) error {
	data, err := json.Marshal(envelope{Origin: b.instance, Event: ev})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.prefix+ev.Topic, data).Err()
}

// Run relays peer events into hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context, hub *Hub) error {
	ps := b.client.PSubscribe(ctx, b.prefix+"*")
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if ev, relay := b.decode([]byte(msg.Payload)); relay {
				hub.Deliver(ev)
			}
		}
	}
}

// decode unwraps a peer message; it reports false for own or malformed
// messages.
func (b *RedisBridge) decode(payload []byte) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.log.Warn().Err(err).Msg("dropping malformed relay message")
		return Event{}, false
	}
	if env.Origin == b.instance {
		return Event{}, false
	}
	return env.Event, true
}

// Close implements Sink.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
