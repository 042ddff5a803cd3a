package queue

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublish_DialHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t))
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := p.Publish(ctx, BookingEvent{EventID: "e1", Type: EventBookingCreated})
	require.Error(t, err)
	assert.Less(t, time.Since(started), 3*time.Second)
}

func TestPublish_ExpiredContext(t *testing.T) {
	p := NewPublisher(silentBroker(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, BookingEvent{EventID: "e1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialTimeout(t *testing.T) {
	d, err := dialTimeout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultDialTimeout, d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err = dialTimeout(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, d, time.Second)
	assert.Greater(t, d, time.Duration(0))
}

type blockingSender struct {
	mu      sync.Mutex
	release chan struct{}
	got     []string
}

func (s *blockingSender) Publish(ctx context.Context, ev BookingEvent) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.got = append(s.got, ev.EventID)
	s.mu.Unlock()
	return nil
}

func TestDispatcher_PublishDoesNotWaitForBroker(t *testing.T) {
	s := &blockingSender{release: make(chan struct{})}
	d := NewDispatcher(s, 2, time.Minute)

	started := time.Now()
	require.NoError(t, d.Publish(context.Background(), BookingEvent{EventID: "a"}))
	require.NoError(t, d.Publish(context.Background(), BookingEvent{EventID: "b"}))
	assert.Less(t, time.Since(started), time.Second)

	// the worker holds "a"; "b" and "c" fill the buffer, "d" has no room
	require.Eventually(t, func() bool { return len(d.events) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Publish(context.Background(), BookingEvent{EventID: "c"}))
	assert.ErrorIs(t, d.Publish(context.Background(), BookingEvent{EventID: "d"}), ErrDispatcherFull)

	close(s.release)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, s.got)
	assert.ErrorIs(t, d.Publish(context.Background(), BookingEvent{EventID: "e"}), ErrDispatcherClosed)
}

type failingSender struct{ calls int }

func (f *failingSender) Publish(context.Context, BookingEvent) error {
	f.calls++
	return errors.New("broker down")
}

func TestDispatcher_DeliveryErrorsAreSwallowed(t *testing.T) {
	f := &failingSender{}
	d := NewDispatcher(f, 4, time.Second)
	require.NoError(t, d.Publish(context.Background(), BookingEvent{EventID: "a"}))
	require.NoError(t, d.Publish(context.Background(), BookingEvent{EventID: "b"}))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, f.calls)
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	s := &blockingSender{release: make(chan struct{})}
	d := NewDispatcher(s, 1, time.Minute)
	require.NoError(t, d.Publish(context.Background(), BookingEvent{EventID: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	close(s.release)
}
