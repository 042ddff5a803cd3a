package queue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrDispatcherFull is returned when the event buffer has no room; the event
// is dropped.
var ErrDispatcherFull = errors.New("event buffer full")

// ErrDispatcherClosed is returned for events handed over after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Sender delivers one event to the broker.
type Sender interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

// Dispatcher decouples request handling from the broker: Publish only
// enqueues, and a single worker delivers events in order through the
// wrapped Sender with a per-event timeout.
type Dispatcher struct {
	next    Sender
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan BookingEvent
	done   chan struct{}
}

// NewDispatcher starts the delivery worker.  buffer is the number of events
// held while the broker is slow; timeout bounds each delivery.
func NewDispatcher(next Sender, buffer int, timeout time.Duration) *Dispatcher {
	if next == nil {
		panic("nil sender passed to NewDispatcher")
	}
	if buffer < 1 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	d := &Dispatcher{
		next:    next,
		timeout: timeout,
		events:  make(chan BookingEvent, buffer),
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

// Publish enqueues ev without waiting for the broker.
func (d *Dispatcher) Publish(_ context.Context, ev BookingEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.events <- ev:
		return nil
	default:
		log.Printf("rabbitmq: buffer full, dropping %s %s", ev.Type, ev.EventID)
		return ErrDispatcherFull
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for ev := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.next.Publish(ctx, ev); err != nil {
			log.Printf("rabbitmq: deliver %s %s failed: %v", ev.Type, ev.EventID, err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the buffered ones have been
// attempted or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
