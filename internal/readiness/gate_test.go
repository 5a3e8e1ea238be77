package readiness_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"reelsync/internal/logging"
	"reelsync/internal/notifications"
	"reelsync/internal/readiness"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (r *recordingNotifier) Notify(event notifications.Event, payload notifications.Payload) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.last = payload
	return true
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type refusingDoer struct {
	calls atomic.Int32
}

func (d *refusingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, &dialError{err: syscall.ECONNREFUSED}
}

// dialError mimics a refused dial without opening sockets.
type dialError struct{ err error }

func (e *dialError) Error() string { return "dial tcp 127.0.0.1:8000: " + e.err.Error() }
func (e *dialError) Unwrap() error { return e.err }

func TestAwaitReadyConnectionRefusedExhaustsBudget(t *testing.T) {
	notifier := &recordingNotifier{}
	doer := &refusingDoer{}
	gate := readiness.NewGate(notifier, logging.NewNop(), readiness.WithHTTPClient(doer))

	state := gate.AwaitReady(context.Background(), "http://127.0.0.1:8000/health", 3, time.Millisecond)
	if state != readiness.StateFailed {
		t.Fatalf("expected StateFailed, got %s", state)
	}
	if got := doer.calls.Load(); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", notifier.count())
	}
	if notifier.events[0] != notifications.EventServiceUnavailable {
		t.Fatalf("unexpected event %q", notifier.events[0])
	}
	if notifier.last["attempts"] != 3 {
		t.Fatalf("expected attempts payload 3, got %v", notifier.last["attempts"])
	}
}

func TestAwaitReadyAgainstClosedPort(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL + "/health"
	server.Close()

	notifier := &recordingNotifier{}
	gate := readiness.NewGate(notifier, logging.NewNop())
	if state := gate.AwaitReady(context.Background(), endpoint, 3, 5*time.Millisecond); state != readiness.StateFailed {
		t.Fatalf("expected StateFailed, got %s", state)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", notifier.count())
	}
}

func TestAwaitReadySucceedsAfterTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	gate := readiness.NewGate(notifier, logging.NewNop())
	if state := gate.AwaitReady(context.Background(), server.URL, 5, time.Millisecond); state != readiness.StateReady {
		t.Fatalf("expected StateReady, got %s", state)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 probes, got %d", calls.Load())
	}
	if notifier.count() != 0 {
		t.Fatalf("expected no notification on success, got %d", notifier.count())
	}
}

func TestAwaitReadyCancelledDoesNotNotify(t *testing.T) {
	doer := &refusingDoer{}
	notifier := &recordingNotifier{}
	gate := readiness.NewGate(notifier, logging.NewNop(), readiness.WithHTTPClient(doer))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	state := gate.AwaitReady(ctx, "http://127.0.0.1:8000/health", 1000, 5*time.Millisecond)
	if state != readiness.StateFailed {
		t.Fatalf("expected StateFailed, got %s", state)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancellation did not end the loop promptly")
	}
	if notifier.count() != 0 {
		t.Fatalf("cancellation must not notify, got %d", notifier.count())
	}
}

func TestAwaitReadyPreCancelledMakesNoRequests(t *testing.T) {
	doer := &refusingDoer{}
	gate := readiness.NewGate(nil, logging.NewNop(), readiness.WithHTTPClient(doer))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if state := gate.AwaitReady(ctx, "http://127.0.0.1:8000/health", 3, time.Millisecond); state != readiness.StateFailed {
		t.Fatalf("expected StateFailed, got %s", state)
	}
	if doer.calls.Load() != 0 {
		t.Fatalf("expected no probes, got %d", doer.calls.Load())
	}
}

func TestConcurrentCallersRunIndependentLoops(t *testing.T) {
	doer := &refusingDoer{}
	notifier := &recordingNotifier{}
	gate := readiness.NewGate(notifier, logging.NewNop(), readiness.WithHTTPClient(doer))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gate.AwaitReady(context.Background(), "http://127.0.0.1:8000/health", 2, time.Millisecond)
		}()
	}
	wg.Wait()
	if doer.calls.Load() != 6 {
		t.Fatalf("expected 6 probes across callers, got %d", doer.calls.Load())
	}
	if notifier.count() != 3 {
		t.Fatalf("expected one notification per caller, got %d", notifier.count())
	}
}

func TestProbeSingleAttempt(t *testing.T) {
	doer := &refusingDoer{}
	gate := readiness.NewGate(nil, logging.NewNop(), readiness.WithHTTPClient(doer))
	if gate.Probe(context.Background(), "http://127.0.0.1:8000/health") {
		t.Fatal("expected probe to fail")
	}
	if doer.calls.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", doer.calls.Load())
	}
}
