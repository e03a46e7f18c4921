package store

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/simonjohansson/deskboard/internal/model"
)

// entities is the load and reconcile logic shared by the ticket and todo
// stores.
type entities[T Entity] struct {
	name    string
	logger  *slog.Logger
	items   *Collection[T]
	loading atomic.Bool
	list    func(ctx context.Context) ([]T, error)
}

func newEntities[T Entity](name string, logger *slog.Logger, list func(context.Context) ([]T, error)) *entities[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &entities[T]{
		name:   name,
		logger: logger,
		items:  NewCollection[T](),
		list:   list,
	}
}

// LoadAll replaces the collection with the backend's list. A call made
// while another load is in flight returns immediately with nil. A failed
// load empties the collection and returns the error.
func (e *entities[T]) LoadAll(ctx context.Context) error {
	if !e.loading.CompareAndSwap(false, true) {
		e.logger.Debug("load already in flight", "store", e.name)
		return nil
	}
	e.items.notify(Change{Kind: ChangeLoading})
	defer func() {
		e.loading.Store(false)
		e.items.notify(Change{Kind: ChangeLoading})
	}()

	items, err := e.list(ctx)
	if err != nil {
		e.logger.Warn("load failed", "store", e.name, "error", err)
		e.items.Clear()
		return err
	}
	e.items.Replace(items)
	e.logger.Debug("loaded", "store", e.name, "count", len(items))
	return nil
}

// Loading reports whether LoadAll is in flight.
func (e *entities[T]) Loading() bool {
	return e.loading.Load()
}

// ApplyRemoteUpsert is the single reconciliation primitive: the entity
// replaces any entry with the same id, otherwise it is appended.
func (e *entities[T]) ApplyRemoteUpsert(item T) {
	e.items.Upsert(item)
}

// ApplyRemoteDelete removes id. Absent ids are ignored.
func (e *entities[T]) ApplyRemoteDelete(id model.ID) {
	e.items.Delete(id)
}

// Reset empties the store, as on logout.
func (e *entities[T]) Reset() {
	e.items.Clear()
}

func (e *entities[T]) Get(id model.ID) (T, bool) {
	return e.items.Get(id)
}

func (e *entities[T]) All() []T {
	return e.items.All()
}

func (e *entities[T]) Len() int {
	return e.items.Len()
}

// Subscribe registers an observer for every committed change, loading
// transitions included.
func (e *entities[T]) Subscribe(fn func(Change)) func() {
	return e.items.Subscribe(fn)
}

// confirm upserts the entity a successful backend call returned.
func (e *entities[T]) confirm(item T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	e.items.Upsert(item)
	return item, nil
}
