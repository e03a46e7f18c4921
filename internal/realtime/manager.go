// Package realtime owns the websocket connection: dialing, heartbeat,
// reconnect backoff and fan-out of decoded events to registered handlers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/simonjohansson/deskboard/internal/clock"
	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
	StateClosed     State = "closed"
)

const (
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultReconnectBaseDelay   = time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultMaxReconnectAttempts = 5

	writeTimeout = 2 * time.Second
)

// Close codes with special meaning to the reconnect policy.
const (
	CloseNormal          = websocket.CloseNormalClosure
	ClosePolicyViolation = websocket.ClosePolicyViolation
	CloseAbnormal        = websocket.CloseAbnormalClosure
)

type Options struct {
	APIBaseURL           string
	Dialer               Dialer
	Clock                clock.Clock
	Logger               *slog.Logger
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int
}

// Manager holds at most one live socket. All handlers for a socket run
// on that socket's reader goroutine, in wire order.
type Manager struct {
	apiBase     string
	dialer      Dialer
	clock       clock.Clock
	logger      *slog.Logger
	heartbeat   time.Duration
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	bus         *Bus

	mu         sync.Mutex
	state      State
	token      string
	conn       Conn
	gen        uint64
	attempts   int
	pingTimer  *clock.Timer
	retryTimer *clock.Timer
	cancelDial context.CancelFunc

	writeMu sync.Mutex
}

func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = GorillaDialer(nil)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	m := &Manager{
		apiBase:     opts.APIBaseURL,
		dialer:      dialer,
		clock:       clk,
		logger:      logger,
		heartbeat:   opts.HeartbeatInterval,
		baseDelay:   opts.ReconnectBaseDelay,
		maxDelay:    opts.ReconnectMaxDelay,
		maxAttempts: opts.MaxReconnectAttempts,
		bus:         NewBus(logger),
		state:       StateIdle,
	}
	if m.heartbeat <= 0 {
		m.heartbeat = DefaultHeartbeatInterval
	}
	if m.baseDelay <= 0 {
		m.baseDelay = DefaultReconnectBaseDelay
	}
	if m.maxDelay <= 0 {
		m.maxDelay = DefaultReconnectMaxDelay
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = DefaultMaxReconnectAttempts
	}
	return m
}

// On registers fn for events of kind. The returned function removes
// exactly this registration.
func (m *Manager) On(kind model.EventType, fn Handler) func() {
	return m.bus.On(kind, fn)
}

// OnAny registers fn for every event.
func (m *Manager) OnAny(fn Handler) func() {
	return m.bus.OnAny(fn)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsOpen() bool {
	return m.State() == StateOpen
}

// Attempts returns the consecutive failed reconnect count.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Connect opens the socket in the background. It does nothing when token
// is empty or a socket is already connecting or open.
func (m *Manager) Connect(token string) {
	if token == "" {
		return
	}

	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	wsURL, err := BuildWebsocketURL(m.apiBase, token)
	if err != nil {
		m.state = StateClosed
		m.mu.Unlock()
		m.logger.Error("websocket url", "error", err)
		m.bus.Emit(events.TransportError{Err: err})
		return
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.token = token
	m.state = StateConnecting
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.mu.Unlock()

	m.logger.Debug("websocket connecting", "generation", gen)
	go m.run(ctx, gen, wsURL)
}

func (m *Manager) run(ctx context.Context, gen uint64, wsURL string) {
	conn, resp, err := m.dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	m.cancelDial = nil
	if err != nil {
		m.mu.Unlock()
		code := CloseAbnormal
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			code = ClosePolicyViolation
		}
		m.logger.Warn("websocket dial failed", "error", err, "code", code)
		m.bus.Emit(events.TransportError{Err: err})
		m.closed(gen, code, err.Error())
		return
	}
	m.conn = conn
	m.state = StateOpen
	m.attempts = 0
	m.armHeartbeatLocked(gen)
	m.mu.Unlock()

	m.logger.Info("websocket connected", "generation", gen)
	m.bus.Emit(events.Connected{})
	m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			code, reason := CloseAbnormal, err.Error()
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code, reason = closeErr.Code, closeErr.Text
			} else if m.current(gen) {
				m.bus.Emit(events.TransportError{Err: err})
			}
			m.closed(gen, code, reason)
			return
		}
		if !m.current(gen) {
			return
		}
		ev, err := events.Decode(data)
		if err != nil {
			m.logger.Debug("dropping websocket frame", "error", err)
			continue
		}
		m.bus.Emit(ev)
	}
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

// closed finishes a socket generation and applies the reconnect policy.
// Sockets replaced or torn down by Disconnect are ignored.
func (m *Manager) closed(gen uint64, code int, reason string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.stopHeartbeatLocked()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.state = StateClosed
	m.mu.Unlock()

	m.logger.Info("websocket closed", "code", code, "reason", reason)
	m.bus.Emit(events.Disconnected{Code: code, Reason: reason})

	if code == CloseNormal || code == ClosePolicyViolation {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.token == "" || m.state != StateClosed {
		return
	}
	if m.attempts >= m.maxAttempts {
		m.logger.Warn("websocket reconnect attempts exhausted", "attempts", m.attempts)
		return
	}
	m.attempts++
	delay := m.backoff(m.attempts)
	m.logger.Info("websocket reconnect scheduled", "attempt", m.attempts, "delay_ms", delay.Milliseconds())
	m.retryTimer = m.clock.AfterFunc(delay, m.retry)
}

func (m *Manager) backoff(attempt int) time.Duration {
	delay := m.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.maxDelay {
			return m.maxDelay
		}
	}
	if delay > m.maxDelay {
		return m.maxDelay
	}
	return delay
}

func (m *Manager) retry() {
	m.mu.Lock()
	m.retryTimer = nil
	token := m.token
	state := m.state
	m.mu.Unlock()
	if token == "" || state == StateOpen || state == StateConnecting {
		return
	}
	m.Connect(token)
}

func (m *Manager) armHeartbeatLocked(gen uint64) {
	m.pingTimer = m.clock.AfterFunc(m.heartbeat, func() { m.ping(gen) })
}

func (m *Manager) stopHeartbeatLocked() {
	if m.pingTimer != nil {
		m.pingTimer.Stop()
		m.pingTimer = nil
	}
}

func (m *Manager) ping(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.armHeartbeatLocked(gen)
	m.mu.Unlock()

	if err := m.write(conn, model.ClientFrame{Type: model.FrameTypePing}); err != nil {
		m.logger.Debug("websocket ping failed", "error", err)
	}
}

// SubscribeTicket asks the server for events on one ticket. Nothing is
// queued: it reports false when the socket is not open.
func (m *Manager) SubscribeTicket(id model.ID) bool {
	return m.sendTicketFrame(model.FrameTypeSubscribeTicket, id)
}

func (m *Manager) UnsubscribeTicket(id model.ID) bool {
	return m.sendTicketFrame(model.FrameTypeUnsubscribeTicket, id)
}

func (m *Manager) sendTicketFrame(frameType string, id model.ID) bool {
	m.mu.Lock()
	if m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return false
	}
	conn := m.conn
	m.mu.Unlock()

	ticketID := id
	if err := m.write(conn, model.ClientFrame{Type: frameType, TicketID: &ticketID}); err != nil {
		m.logger.Warn("websocket send failed", "type", frameType, "ticket_id", id, "error", err)
		m.bus.Emit(events.TransportError{Err: err})
		return false
	}
	return true
}

func (m *Manager) write(conn Conn, frame model.ClientFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Disconnect tears the connection down: timers are cancelled, the socket
// is closed with a normal closure, and every handler and the token are
// dropped. It is the only path that resets the manager completely.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.stopHeartbeatLocked()
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	conn := m.conn
	m.conn = nil
	m.token = ""
	m.attempts = 0
	if conn != nil {
		m.state = StateClosing
	} else {
		m.state = StateClosed
	}
	m.mu.Unlock()

	m.bus.Clear()

	if conn == nil {
		return
	}
	m.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseNormal, "Client disconnect"))
	m.writeMu.Unlock()
	_ = conn.Close()

	m.mu.Lock()
	if m.gen == gen {
		m.state = StateClosed
	}
	m.mu.Unlock()
	m.logger.Info("websocket disconnected")
}
