package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelsync/internal/logging"
)

const defaultSendTimeout = 15 * time.Second

type envelope struct {
	event   Event
	payload Payload
}

// Dispatcher delivers events on a background goroutine through a bounded
// queue. Notify never blocks; when the queue is full the event is dropped and
// logged. Delivery errors are logged and never reach the caller.
type Dispatcher struct {
	svc    Service
	logger *slog.Logger
	queue  chan envelope

	mu      sync.Mutex
	closed  bool
	dropped int
	done    chan struct{}
}

// NewDispatcher starts a dispatcher that drains into svc.
func NewDispatcher(svc Service, size int, logger *slog.Logger) *Dispatcher {
	if svc == nil {
		svc = noopService{}
	}
	if size <= 0 {
		size = 16
	}
	d := &Dispatcher{
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "notifications"),
		queue:  make(chan envelope, size),
		done:   make(chan struct{}),
	}
	go d.loop()
	return d
}

// Notify enqueues an event and reports whether it was accepted.
func (d *Dispatcher) Notify(event Event, payload Payload) bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- envelope{event: event, payload: payload}:
		return true
	default:
		d.dropped++
		logging.WarnWithContext(d.logger, "notification queue full; event dropped", "notification_dropped",
			logging.String("event", string(event)),
			logging.Int("dropped_total", d.dropped),
			logging.String(logging.FieldErrorHint, "check ntfy reachability or raise notifications.queue_size"),
			logging.String(logging.FieldImpact, "user will not receive this notification"),
		)
		return false
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close stops accepting events and waits for queued ones to drain, bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for env := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
		err := d.svc.Publish(ctx, env.event, env.payload)
		cancel()
		if err != nil {
			logging.WarnWithContext(d.logger, "notification delivery failed", "notification_failed",
				logging.String("event", string(env.event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "user did not receive this notification"),
			)
			continue
		}
		d.logger.Debug("notification sent", logging.String("event", string(env.event)))
	}
}
