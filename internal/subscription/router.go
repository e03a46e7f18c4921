// Package subscription manages per-view interest in single tickets.
//
// A view mounts with SubscribeToEntity and unmounts with
// UnsubscribeFromEntity. The router only drives the subscribe and
// unsubscribe frames; it never filters which events a view receives.
package subscription

import (
	"log/slog"
	"sync"
	"time"

	"github.com/simonjohansson/deskboard/internal/clock"
	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/realtime"
)

type State string

const (
	StateUnsubscribed    State = "unsubscribed"
	StateSubscribeSent   State = "subscribe_sent"
	StateActive          State = "active"
	StateUnsubscribeSent State = "unsubscribe_sent"
)

const (
	DefaultPollInterval = time.Second
	DefaultMaxPolls     = 10
)

// Connection is what the router needs from the connection manager.
type Connection interface {
	IsOpen() bool
	SubscribeTicket(id model.ID) bool
	UnsubscribeTicket(id model.ID) bool
	On(kind model.EventType, fn realtime.Handler) func()
}

type Options struct {
	Clock        clock.Clock
	Logger       *slog.Logger
	PollInterval time.Duration
	MaxPolls     int
}

type entry struct {
	state       State
	offConnect  func()
	pollTimer   *clock.Timer
	pollsIssued int
}

type Router struct {
	conn         Connection
	clock        clock.Clock
	logger       *slog.Logger
	pollInterval time.Duration
	maxPolls     int

	mu      sync.Mutex
	entries map[model.ID]*entry
	offs    []func()
}

func New(conn Connection, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	r := &Router{
		conn:         conn,
		clock:        clk,
		logger:       logger,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		entries:      make(map[model.ID]*entry),
	}
	if r.pollInterval <= 0 {
		r.pollInterval = DefaultPollInterval
	}
	if r.maxPolls <= 0 {
		r.maxPolls = DefaultMaxPolls
	}
	r.offs = []func(){
		conn.On(model.EventTypeSubscribed, r.onSubscribed),
		conn.On(model.EventTypeUnsubscribed, r.onUnsubscribed),
		conn.On(model.EventTypeDisconnected, r.onDisconnected),
	}
	return r
}

// SubscribeToEntity registers interest in a ticket. When the socket is not
// open the frame goes out on the next connected event, or from a bounded
// poll, whichever comes first. Subscribing an already mounted id is a
// no-op.
func (r *Router) SubscribeToEntity(id model.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return
	}
	e := &entry{state: StateUnsubscribed}
	r.entries[id] = e
	r.sendOrArmLocked(id, e)
}

// UnsubscribeFromEntity drops interest in a ticket. The frame is only sent
// while the socket is open; otherwise the entry is dropped silently.
func (r *Router) UnsubscribeFromEntity(id model.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	r.disarmLocked(e)
	sent := false
	if e.state == StateSubscribeSent || e.state == StateActive {
		sent = r.conn.IsOpen() && r.conn.UnsubscribeTicket(id)
	}
	if sent {
		e.state = StateUnsubscribeSent
		return
	}
	delete(r.entries, id)
}

// State returns the subscription state of id.
func (r *Router) State(id model.ID) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.state
	}
	return StateUnsubscribed
}

// Mounted lists the ids with a live entry.
func (r *Router) Mounted() []model.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ID, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	return out
}

// Close releases every listener and timer without sending frames.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		r.disarmLocked(e)
		delete(r.entries, id)
	}
	for _, off := range r.offs {
		off()
	}
	r.offs = nil
}

func (r *Router) sendOrArmLocked(id model.ID, e *entry) {
	if r.conn.IsOpen() && r.conn.SubscribeTicket(id) {
		e.state = StateSubscribeSent
		r.logger.Debug("subscribe sent", "ticket_id", id)
		return
	}
	e.state = StateUnsubscribed
	if e.offConnect == nil {
		e.offConnect = r.conn.On(model.EventTypeConnected, func(events.Event) { r.onConnected(id, e) })
	}
	e.pollsIssued = 0
	r.armPollLocked(id, e)
}

func (r *Router) armPollLocked(id model.ID, e *entry) {
	if e.pollTimer != nil {
		e.pollTimer.Stop()
	}
	e.pollTimer = r.clock.AfterFunc(r.pollInterval, func() { r.poll(id, e) })
}

func (r *Router) disarmLocked(e *entry) {
	if e.offConnect != nil {
		e.offConnect()
		e.offConnect = nil
	}
	if e.pollTimer != nil {
		e.pollTimer.Stop()
		e.pollTimer = nil
	}
}

// liveLocked reports whether e is still the mounted entry for id.
func (r *Router) liveLocked(id model.ID, e *entry) bool {
	current, ok := r.entries[id]
	return ok && current == e
}

func (r *Router) onConnected(id model.ID, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.liveLocked(id, e) || e.state != StateUnsubscribed {
		r.disarmLocked(e)
		return
	}
	r.disarmLocked(e)
	r.sendOrArmLocked(id, e)
}

func (r *Router) poll(id model.ID, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.pollTimer = nil
	if !r.liveLocked(id, e) || e.state != StateUnsubscribed {
		return
	}
	e.pollsIssued++
	if r.conn.IsOpen() && r.conn.SubscribeTicket(id) {
		r.disarmLocked(e)
		e.state = StateSubscribeSent
		r.logger.Debug("subscribe sent from poll", "ticket_id", id, "poll", e.pollsIssued)
		return
	}
	if e.pollsIssued < r.maxPolls {
		r.armPollLocked(id, e)
		return
	}
	r.logger.Debug("subscribe poll exhausted, waiting for connected", "ticket_id", id)
}

func (r *Router) onSubscribed(ev events.Event) {
	ack, ok := ev.(events.Subscribed)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ack.TicketID.IsZero() {
		for _, e := range r.entries {
			if e.state == StateSubscribeSent {
				e.state = StateActive
			}
		}
		return
	}
	if e, ok := r.entries[ack.TicketID]; ok && e.state == StateSubscribeSent {
		e.state = StateActive
	}
}

func (r *Router) onUnsubscribed(ev events.Event) {
	ack, ok := ev.(events.Unsubscribed)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.state != StateUnsubscribeSent {
			continue
		}
		if ack.TicketID.IsZero() || ack.TicketID == id {
			delete(r.entries, id)
		}
	}
}

// onDisconnected voids every server-side subscription. Mounted views fall
// back to unsubscribed and wait for the next connected event.
func (r *Router) onDisconnected(events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		switch e.state {
		case StateUnsubscribeSent:
			delete(r.entries, id)
		case StateSubscribeSent, StateActive:
			e.state = StateUnsubscribed
			r.sendOrArmLocked(id, e)
		}
	}
}
