package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-bloodlink-backend/internal/observability"
)

// DefaultBuffer is the per-subscription queue size when none is configured.
const DefaultBuffer = 64

// sinkTimeout bounds a single sink delivery.
const sinkTimeout = 5 * time.Second

// Handle identifies a subscription. The zero Handle is never issued.
type Handle uint64

// Subscription is one consumer's view of a topic.
type Subscription struct {
	handle Handle
	topic  string
	filter Filter
	events chan Event
	done   chan struct{}
}

// Events delivers matching events. It is closed on Unsubscribe or Hub.Close.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed together with Events.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Handle returns the id to pass to Hub.Unsubscribe.
func (s *Subscription) Handle() Handle { return s.handle }

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) close() {
	close(s.events)
	close(s.done)
}

// Sink receives every published event outside the process, e.g. an MQTT
// broker or a Redis channel shared with peer instances.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
	Close() error
}

// Hub is the connection manager for realtime subscribers. It is safe for
// concurrent use. Slow consumers never block publishers: an event that does
// not fit in a subscriber's buffer is dropped and counted.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Handle]*Subscription
	topics map[string]map[Handle]*Subscription
	closed bool

	next   atomic.Uint64
	buffer int

	sinks  []Sink
	outbox chan Event
	wg     sync.WaitGroup

	closeOnce sync.Once
	log       zerolog.Logger
}

// NewHub creates a hub. Sinks, when given, are fed from a background
// goroutine that stops on Close.
func NewHub(buffer int, log zerolog.Logger, sinks ...Sink) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	h := &Hub{
		subs:   make(map[Handle]*Subscription),
		topics: make(map[string]map[Handle]*Subscription),
		buffer: buffer,
		sinks:  sinks,
		log:    log.With().Str("component", "realtime").Logger(),
	}
	if len(sinks) > 0 {
		h.outbox = make(chan Event, buffer*4)
		h.wg.Add(1)
		go h.forward()
	}
	return h
}

// Subscribe registers interest in topic. Events failing filter are never
// queued. Subscribing to a closed hub returns an already-closed subscription.
func (h *Hub) Subscribe(topic string, filter Filter) *Subscription {
	s := &Subscription{
		handle: Handle(h.next.Add(1)),
		topic:  topic,
		filter: filter,
		events: make(chan Event, h.buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return s
	}
	h.subs[s.handle] = s
	byTopic, ok := h.topics[topic]
	if !ok {
		byTopic = make(map[Handle]*Subscription)
		h.topics[topic] = byTopic
	}
	byTopic[s.handle] = s
	observability.RealtimeSubscribers.Inc()
	return s
}

// SubscribeFunc subscribes and runs fn for each event on its own goroutine
// until ctx is cancelled or the handle is unsubscribed.
func (h *Hub) SubscribeFunc(ctx context.Context, topic string, filter Filter, fn func(Event)) Handle {
	s := h.Subscribe(topic, filter)
	go func() {
		defer h.Unsubscribe(s.handle)
		_ = Listen(ctx, s, fn)
	}()
	return s.handle
}

// Unsubscribe closes and removes the subscription. Unknown or already
// removed handles are ignored.
func (h *Hub) Unsubscribe(id Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	if byTopic := h.topics[s.topic]; byTopic != nil {
		delete(byTopic, id)
		if len(byTopic) == 0 {
			delete(h.topics, s.topic)
		}
	}
	s.close()
	observability.RealtimeSubscribers.Dec()
}

// Publish delivers ev to local subscribers of ev.Topic and queues it for the
// sinks. It never blocks.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.deliverLocked(ev)
	if h.outbox != nil {
		select {
		case h.outbox <- ev:
		default:
			observability.RealtimeDropped.WithLabelValues("sink").Inc()
			h.log.Warn().Str("topic", ev.Topic).Msg("sink queue full; event dropped")
		}
	}
}

// Deliver hands ev to local subscribers only. Bridges use it for events
// relayed from peers so they are not echoed back out.
func (h *Hub) Deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.deliverLocked(ev)
}

func (h *Hub) deliverLocked(ev Event) {
	for _, s := range h.topics[ev.Topic] {
		if s.filter != nil && !s.filter(ev) {
			continue
		}
		select {
		case s.events <- ev:
		default:
			observability.RealtimeDropped.WithLabelValues("subscriber").Inc()
			h.log.Debug().Str("topic", ev.Topic).Uint64("handle", uint64(s.handle)).Msg("subscriber buffer full; event dropped")
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription, drains the sink queue and closes the sinks.
// It is safe to call more than once.
func (h *Hub) Close() error {
	var firstErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		for id, s := range h.subs {
			s.close()
			delete(h.subs, id)
			observability.RealtimeSubscribers.Dec()
		}
		h.topics = make(map[string]map[Handle]*Subscription)
		if h.outbox != nil {
			close(h.outbox)
		}
		h.mu.Unlock()

		h.wg.Wait()
		for _, sink := range h.sinks {
			if err := sink.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

func (h *Hub) forward() {
	defer h.wg.Done()
	for ev := range h.outbox {
		for _, sink := range h.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			if err := sink.Send(ctx, ev); err != nil {
				h.log.Warn().Err(err).Str("sink", sink.Name()).Str("topic", ev.Topic).Msg("sink delivery failed")
			}
			cancel()
		}
	}
}

// Listen calls fn for every event on sub until ctx is done (returning its
// error) or the subscription is closed (returning nil).
func Listen(ctx context.Context, sub *Subscription, fn func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			fn(ev)
		}
	}
}
