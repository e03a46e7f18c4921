package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/simonjohansson/deskboard/internal/clock"
	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	incoming chan []byte
	done     chan struct{}

	mu       sync.Mutex
	readErr  error
	written  [][]byte
	controls [][]byte
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.incoming:
		return websocket.TextMessage, msg, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return 0, nil, c.readErr
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	if messageType == websocket.CloseMessage {
		c.controls = append(c.controls, data)
		return nil
	}
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.finish(net.ErrClosed)
	return nil
}

// serverClose simulates the peer closing with code.
func (c *fakeConn) serverClose(code int, reason string) {
	c.finish(&websocket.CloseError{Code: code, Text: reason})
}

func (c *fakeConn) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.readErr = err
	close(c.done)
}

func (c *fakeConn) frames() []model.ClientFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ClientFrame, 0, len(c.written))
	for _, raw := range c.written {
		var frame model.ClientFrame
		_ = json.Unmarshal(raw, &frame)
		out = append(out, frame)
	}
	return out
}

type stubDialer struct {
	mu     sync.Mutex
	urls   []string
	dialFn func(ctx context.Context, url string) (Conn, *http.Response, error)
}

func (d *stubDialer) DialContext(ctx context.Context, url string, _ http.Header) (Conn, *http.Response, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	fn := d.dialFn
	d.mu.Unlock()
	return fn(ctx, url)
}

func (d *stubDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func connDialer(conns ...*fakeConn) *stubDialer {
	var mu sync.Mutex
	next := 0
	return &stubDialer{dialFn: func(context.Context, string) (Conn, *http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(conns) {
			return nil, nil, errors.New("no more connections")
		}
		conn := conns[next]
		next++
		return conn, nil, nil
	}}
}

func newTestManager(dialer Dialer, clk clock.Clock) *Manager {
	return New(Options{
		APIBaseURL: "http://example.test/api/v1",
		Dialer:     dialer,
		Clock:      clk,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func waitEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func collect(m *Manager) <-chan events.Event {
	ch := make(chan events.Event, 64)
	m.OnAny(func(ev events.Event) { ch <- ev })
	return ch
}

func TestConnectOpensOneSocketAndEmitsConnected(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	dialer := connDialer(conn)
	m := newTestManager(dialer, clock.Fake(time.Unix(0, 0)))
	evs := collect(m)

	m.Connect("tok en")
	require.IsType(t, events.Connected{}, waitEvent(t, evs))
	require.True(t, m.IsOpen())

	m.Connect("tok en")
	m.Connect("other")
	require.Equal(t, 1, dialer.dials())
	require.Equal(t, "ws://example.test/api/v1/ws?token=tok+en", dialer.urls[0])
}

func TestConnectIgnoresEmptyToken(t *testing.T) {
	t.Parallel()

	dialer := connDialer()
	m := newTestManager(dialer, clock.Fake(time.Unix(0, 0)))
	m.Connect("")
	require.Equal(t, StateIdle, m.State())
	require.Equal(t, 0, dialer.dials())
}

func TestFramesAreDecodedAndDispatchedInOrder(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := newTestManager(connDialer(conn), clock.Fake(time.Unix(0, 0)))
	evs := collect(m)
	m.Connect("tok")
	waitEvent(t, evs)

	conn.incoming <- []byte(`{"type":"ticket_created","ticket":{"id":1}}`)
	conn.incoming <- []byte(`garbage`)
	conn.incoming <- []byte(`{"type":"brand_new_kind"}`)
	conn.incoming <- []byte(`{"type":"ticket_deleted","ticket_id":1}`)

	require.IsType(t, events.TicketCreated{}, waitEvent(t, evs))
	require.Equal(t, events.TicketDeleted{TicketID: "1"}, waitEvent(t, evs))
}

func TestHeartbeatSendsPingAndStopsOnDisconnect(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	clk := clock.Fake(time.Unix(0, 0))
	m := newTestManager(connDialer(conn), clk)
	evs := collect(m)
	m.Connect("tok")
	waitEvent(t, evs)

	clk.Advance(65 * time.Second)
	frames := conn.frames()
	require.Len(t, frames, 2)
	require.Equal(t, model.FrameTypePing, frames[0].Type)

	m.Disconnect()
	m.mu.Lock()
	require.Nil(t, m.pingTimer)
	m.mu.Unlock()
	require.Equal(t, 0, clk.PendingCount())

	clk.Advance(5 * time.Minute)
	require.Len(t, conn.frames(), 2)
	require.Equal(t, StateClosed, m.State())

	conn.mu.Lock()
	require.Len(t, conn.controls, 1)
	conn.mu.Unlock()
}

func TestDisconnectClearsHandlersAndToken(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := newTestManager(connDialer(conn), clock.Fake(time.Unix(0, 0)))
	evs := collect(m)
	m.Connect("tok")
	waitEvent(t, evs)

	m.Disconnect()
	require.Equal(t, 0, m.bus.Count(anyKind))
	m.mu.Lock()
	require.Empty(t, m.token)
	m.mu.Unlock()
	require.Equal(t, 0, m.Attempts())
}

func TestSubscribeOnlyWhileOpen(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := newTestManager(connDialer(conn), clock.Fake(time.Unix(0, 0)))
	require.False(t, m.SubscribeTicket("7"))

	evs := collect(m)
	m.Connect("tok")
	waitEvent(t, evs)

	require.True(t, m.SubscribeTicket("7"))
	require.True(t, m.UnsubscribeTicket("7"))
	frames := conn.frames()
	require.Len(t, frames, 2)
	require.Equal(t, model.FrameTypeSubscribeTicket, frames[0].Type)
	require.Equal(t, model.ID("7"), *frames[0].TicketID)
	require.Equal(t, model.FrameTypeUnsubscribeTicket, frames[1].Type)

	conn.mu.Lock()
	raw := string(conn.written[0])
	conn.mu.Unlock()
	require.JSONEq(t, `{"type":"subscribe_ticket","ticket_id":7}`, raw)
}

func TestAbnormalCloseReconnectsWithBackoff(t *testing.T) {
	t.Parallel()

	first, second := newFakeConn(), newFakeConn()
	clk := clock.Fake(time.Unix(0, 0))
	dialer := connDialer(first, second)
	m := newTestManager(dialer, clk)
	evs := collect(m)
	m.Connect("tok")
	waitEvent(t, evs)

	first.serverClose(websocket.CloseGoingAway, "restart")
	require.Equal(t, events.Disconnected{Code: websocket.CloseGoingAway, Reason: "restart"}, waitEvent(t, evs))

	clk.WaitForTimers(1)
	require.Equal(t, 1, m.Attempts())
	clk.Advance(999 * time.Millisecond)
	require.Equal(t, 1, dialer.dials())
	clk.Advance(time.Millisecond)

	require.IsType(t, events.Connected{}, waitEvent(t, evs))
	require.Equal(t, 2, dialer.dials())
	require.Equal(t, 0, m.Attempts())
}

func TestTerminalCloseCodesDoNotReconnect(t *testing.T) {
	t.Parallel()

	for _, code := range []int{CloseNormal, ClosePolicyViolation} {
		conn := newFakeConn()
		clk := clock.Fake(time.Unix(0, 0))
		dialer := connDialer(conn)
		m := newTestManager(dialer, clk)
		evs := collect(m)
		m.Connect("tok")
		waitEvent(t, evs)

		conn.serverClose(code, "bye")
		require.Equal(t, events.Disconnected{Code: code, Reason: "bye"}, waitEvent(t, evs))
		require.Equal(t, 0, clk.PendingCount())
		require.Equal(t, 0, m.Attempts())
		require.Equal(t, StateClosed, m.State())
	}
}

func TestReconnectCeilingStopsAfterFiveAttempts(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(time.Unix(0, 0))
	dialer := &stubDialer{dialFn: func(context.Context, string) (Conn, *http.Response, error) {
		return nil, nil, errors.New("connection refused")
	}}
	m := newTestManager(dialer, clk)
	closes := make(chan events.Disconnected, 16)
	m.On(model.EventTypeDisconnected, func(ev events.Event) { closes <- ev.(events.Disconnected) })

	m.Connect("tok")
	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, delay := range expected {
		select {
		case ev := <-closes:
			require.Equal(t, CloseAbnormal, ev.Code)
		case <-time.After(2 * time.Second):
			t.Fatalf("close %d not observed", i+1)
		}
		clk.WaitForTimers(1)
		require.Equal(t, i+1, m.Attempts())
		clk.Advance(delay)
	}

	select {
	case <-closes:
	case <-time.After(2 * time.Second):
		t.Fatal("sixth close not observed")
	}
	require.Eventually(t, func() bool { return m.State() == StateClosed }, time.Second, 5*time.Millisecond)
	require.Equal(t, 5, m.Attempts())
	require.Equal(t, 0, clk.PendingCount())
	require.Equal(t, 5, clk.FiredCount())
	require.Equal(t, 6, dialer.dials())
}

func TestDialRejectedWithUnauthorizedIsTerminal(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(time.Unix(0, 0))
	dialer := &stubDialer{dialFn: func(context.Context, string) (Conn, *http.Response, error) {
		return nil, &http.Response{StatusCode: http.StatusUnauthorized}, websocket.ErrBadHandshake
	}}
	m := newTestManager(dialer, clk)
	evs := collect(m)

	m.Connect("expired")
	require.IsType(t, events.TransportError{}, waitEvent(t, evs))
	require.Equal(t, ClosePolicyViolation, waitEvent(t, evs).(events.Disconnected).Code)
	require.Equal(t, 0, clk.PendingCount())
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	clk := clock.Fake(time.Unix(0, 0))
	dialer := connDialer(conn)
	m := newTestManager(dialer, clk)
	evs := collect(m)
	m.Connect("tok")
	waitEvent(t, evs)

	conn.serverClose(websocket.CloseAbnormalClosure, "")
	waitEvent(t, evs)
	clk.WaitForTimers(1)

	m.Disconnect()
	require.Equal(t, 0, clk.PendingCount())
	clk.Advance(time.Minute)
	require.Equal(t, 1, dialer.dials())
}

func TestBackoffIsCapped(t *testing.T) {
	t.Parallel()

	m := newTestManager(connDialer(), clock.Fake(time.Unix(0, 0)))
	require.Equal(t, time.Second, m.backoff(1))
	require.Equal(t, 16*time.Second, m.backoff(5))
	require.Equal(t, 30*time.Second, m.backoff(6))
	require.Equal(t, 30*time.Second, m.backoff(40))
}
