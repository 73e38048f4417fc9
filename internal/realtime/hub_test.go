package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHub(t *testing.T, buffer int, sinks ...Sink) *Hub {
	t.Helper()
	h := NewHub(buffer, zerolog.Nop(), sinks...)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func requestEvent(bt domain.BloodType, u domain.Urgency) Event {
	return NewRequestEvent(domain.BloodRequest{ID: "r1", BloodType: bt, Urgency: u, Latitude: 40, Longitude: -74}, time.Now())
}

func recv(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func assertEmpty(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHub_RoutesByTopic(t *testing.T) {
	h := newTestHub(t, 4)
	aPos := h.Subscribe(DonorTopic(domain.APos), nil)
	oNeg := h.Subscribe(DonorTopic(domain.ONeg), nil)

	h.Publish(requestEvent(domain.APos, domain.UrgencyCritical))

	ev := recv(t, aPos)
	assert.Equal(t, KindRequestCreated, ev.Kind)
	assert.Equal(t, "requests/A+", ev.Topic)
	assertEmpty(t, oNeg)
}

func TestHub_FilterApplied(t *testing.T) {
	h := newTestHub(t, 4)
	s := h.Subscribe(DonorTopic(domain.APos), func(ev Event) bool {
		return ev.Request.Urgency == domain.UrgencyCritical
	})

	h.Publish(requestEvent(domain.APos, domain.UrgencyLow))
	h.Publish(requestEvent(domain.APos, domain.UrgencyCritical))

	assert.Equal(t, domain.UrgencyCritical, recv(t, s).Request.Urgency)
	assertEmpty(t, s)
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	h := newTestHub(t, 4)
	s := h.Subscribe("t", nil)
	require.Equal(t, 1, h.Len())

	h.Unsubscribe(s.Handle())
	h.Unsubscribe(s.Handle())
	h.Unsubscribe(Handle(999999))

	assert.Equal(t, 0, h.Len())
	_, ok := <-s.Events()
	assert.False(t, ok, "events channel must be closed")
	<-s.Done()

	// publishing to a topic with no subscribers is fine
	h.Publish(Event{Topic: "t"})
}

func TestHub_SlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	h := newTestHub(t, 1)
	s := h.Subscribe("t", nil)
	before := testutil.ToFloat64(observability.RealtimeDropped.WithLabelValues("subscriber"))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.Publish(Event{Topic: "t"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	recv(t, s)
	assertEmpty(t, s)
	after := testutil.ToFloat64(observability.RealtimeDropped.WithLabelValues("subscriber"))
	assert.Equal(t, 4.0, after-before)
}

func TestHub_SubscribeFuncStopsOnCancel(t *testing.T) {
	h := newTestHub(t, 4)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []Event
	h.SubscribeFunc(ctx, "t", nil, func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	h.Publish(Event{Topic: "t", Kind: KindResponseChanged})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return h.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_SubscribeFuncStopsOnUnsubscribe(t *testing.T) {
	h := newTestHub(t, 4)
	id := h.SubscribeFunc(context.Background(), "t", nil, func(Event) {})
	h.Unsubscribe(id)
	assert.Equal(t, 0, h.Len())
	// goleak in TestMain verifies the listener goroutine exited.
}

func TestHub_CloseEndsSubscriptions(t *testing.T) {
	h := NewHub(4, zerolog.Nop())
	s := h.Subscribe("t", nil)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, ok := <-s.Events()
	assert.False(t, ok)

	late := h.Subscribe("t", nil)
	_, ok = <-late.Events()
	assert.False(t, ok, "subscribing to a closed hub yields a closed subscription")
	h.Publish(Event{Topic: "t"}) // no panic
	h.Unsubscribe(late.Handle())
}

type fakeSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Send(_ context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) snapshot() ([]Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...), f.closed
}

func TestHub_SinksReceivePublishButNotDeliver(t *testing.T) {
	sink := &fakeSink{}
	h := NewHub(4, zerolog.Nop(), sink)

	h.Publish(Event{Topic: "a"})
	h.Deliver(Event{Topic: "relayed"})
	h.Publish(Event{Topic: "b"})

	// Close drains the queue before closing sinks.
	require.NoError(t, h.Close())

	events, closed := sink.snapshot()
	assert.True(t, closed)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Topic)
	assert.Equal(t, "b", events[1].Topic)
}

func TestListen_ReturnsCtxErr(t *testing.T) {
	h := newTestHub(t, 1)
	s := h.Subscribe("t", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Listen(ctx, s, func(Event) {}), context.Canceled)

	h.Unsubscribe(s.Handle())
	assert.NoError(t, Listen(context.Background(), s, func(Event) {}))
}
