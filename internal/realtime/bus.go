package realtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
)

// Handler receives dispatched events.
type Handler func(events.Event)

// anyKind is the registry key for handlers that receive every event.
const anyKind model.EventType = "*"

type registration struct {
	fn Handler
}

// Bus is the subscription registry. Each On call creates a distinct
// registration, so the same function may be registered more than once
// and each unsubscribe removes only its own entry.
type Bus struct {
	logger   *slog.Logger
	mu       sync.Mutex
	handlers map[model.EventType][]*registration
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[model.EventType][]*registration),
	}
}

// On registers fn for kind and returns the function that removes it.
func (b *Bus) On(kind model.EventType, fn Handler) func() {
	reg := &registration{fn: fn}
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], reg)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, reg) })
	}
}

// OnAny registers fn for every kind.
func (b *Bus) OnAny(fn Handler) func() {
	return b.On(anyKind, fn)
}

func (b *Bus) remove(kind model.EventType, reg *registration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[kind]
	for i, candidate := range list {
		if candidate == reg {
			next := make([]*registration, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, kind)
			} else {
				b.handlers[kind] = next
			}
			return
		}
	}
}

// Count returns the number of handlers registered for kind.
func (b *Bus) Count(kind model.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[kind])
}

func (b *Bus) Clear() {
	b.mu.Lock()
	b.handlers = make(map[model.EventType][]*registration)
	b.mu.Unlock()
}

// Emit calls the handlers registered at the time of the call, in
// registration order. A panicking handler is logged and skipped.
func (b *Bus) Emit(ev events.Event) {
	b.mu.Lock()
	specific := b.handlers[ev.Kind()]
	wildcard := b.handlers[anyKind]
	snapshot := make([]*registration, 0, len(specific)+len(wildcard))
	snapshot = append(snapshot, specific...)
	snapshot = append(snapshot, wildcard...)
	b.mu.Unlock()

	for _, reg := range snapshot {
		b.invoke(ev, reg.fn)
	}
}

func (b *Bus) invoke(ev events.Event, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "kind", ev.Kind(), "panic", fmt.Sprint(r))
		}
	}()
	fn(ev)
}
