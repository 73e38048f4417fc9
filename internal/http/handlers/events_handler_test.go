package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
)

// streamRecorder lets a test read the body while the handler still writes.
type streamRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (s *streamRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResponseRecorder.Write(b)
}

func (s *streamRecorder) WriteString(str string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResponseRecorder.WriteString(str)
}

func (s *streamRecorder) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResponseRecorder.Flush()
}

func (s *streamRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Body.String()
}

// openStream serves path until the returned stop func is called.
func openStream(t *testing.T, e *testEnv, path string) (*streamRecorder, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	w := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.r.ServeHTTP(w, req)
	}()

	waitFor(t, func() bool { return e.hub.Len() == 1 })
	return w, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("stream did not stop")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRequesterEvents_FiltersBookkeeping(t *testing.T) {
	e := newEnv(t)
	w, stop := openStream(t, e, "/events/requesters/hospital-1")

	now := time.Now().UTC()
	e.hub.Publish(realtime.NewResponseEvent("hospital-1", domain.DonorResponse{DonorID: "d-notified", Status: domain.ResponseNotified}, now))
	e.hub.Publish(realtime.NewResponseEvent("hospital-2", domain.DonorResponse{DonorID: "d-elsewhere", Status: domain.ResponseAccepted}, now))
	e.hub.Publish(realtime.NewResponseEvent("hospital-1", domain.DonorResponse{DonorID: "d-accepted", Status: domain.ResponseAccepted}, now))

	waitFor(t, func() bool { return strings.Contains(w.body(), "d-accepted") })
	stop()

	body := w.body()
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(body, "event:response.changed") {
		t.Fatalf("missing event name: %s", body)
	}
	if strings.Contains(body, "d-notified") || strings.Contains(body, "d-elsewhere") {
		t.Fatalf("unexpected event delivered: %s", body)
	}
	if e.hub.Len() != 0 {
		t.Fatalf("subscription leaked: %d", e.hub.Len())
	}
}

func TestDonorEvents_RadiusAndUrgency(t *testing.T) {
	e := newEnv(t)
	donor := e.registerDonor(t, "A+", 2)
	w, stop := openStream(t, e, "/events/donors/"+donor)

	now := time.Now().UTC()
	base := domain.BloodRequest{BloodType: domain.APos, Urgency: domain.UrgencyUrgent, Latitude: 40, Longitude: -74, UnitsNeeded: 1}

	low := base
	low.ID, low.Urgency = "req-low", domain.UrgencyLow
	far := base
	far.ID, far.Latitude = "req-far", kmNorth(40, 60)
	hit := base
	hit.ID = "req-hit"

	e.hub.Publish(realtime.NewRequestEvent(low, now))
	e.hub.Publish(realtime.NewRequestEvent(far, now))
	e.hub.Publish(realtime.NewRequestEvent(hit, now))

	waitFor(t, func() bool { return strings.Contains(w.body(), "req-hit") })
	stop()

	body := w.body()
	if strings.Contains(body, "req-low") || strings.Contains(body, "req-far") {
		t.Fatalf("filtered request delivered: %s", body)
	}
	if !strings.Contains(body, "event:request.created") {
		t.Fatalf("missing event name: %s", body)
	}
}

func TestEvents_KeepAlive(t *testing.T) {
	e := newEnv(t)
	w, stop := openStream(t, e, "/events/requesters/nobody")
	waitFor(t, func() bool { return strings.Contains(w.body(), ": keepalive") })
	stop()
	if !strings.HasPrefix(w.body(), ": subscribed responses/nobody") {
		t.Fatalf("unexpected preamble: %q", w.body())
	}
}

func TestEvents_Errors(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/events/donors/"+uuid.NewString(), nil, nil)
	wantCode(t, w, http.StatusNotFound, ErrCodeNotFound)

	// Without a hub the streams are unavailable.
	e.r = mount(New(Deps{Donors: e.h.donors}))
	w = e.do(t, http.MethodGet, "/events/requesters/x", nil, nil)
	wantCode(t, w, http.StatusServiceUnavailable, ErrCodeUnavailable)
	w = e.do(t, http.MethodGet, "/events/donors/x", nil, nil)
	wantCode(t, w, http.StatusServiceUnavailable, ErrCodeUnavailable)
}
