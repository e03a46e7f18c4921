package store

import (
	"slices"
	"sync"

	"github.com/simonjohansson/deskboard/internal/model"
)

// Entity is anything stored by id.
type Entity interface {
	EntityID() model.ID
	CreatorID() model.ID
}

type ChangeKind string

const (
	ChangeUpsert  ChangeKind = "upsert"
	ChangeDelete  ChangeKind = "delete"
	ChangeReplace ChangeKind = "replace"
	ChangeClear   ChangeKind = "clear"
	ChangeLoading ChangeKind = "loading"
)

// Change describes one committed mutation. ID is set for upserts and
// deletes.
type Change struct {
	Kind ChangeKind
	ID   model.ID
}

// Collection is an ordered set of entities keyed by id. Entities are
// always replaced whole; there is no field-level merge.
type Collection[T Entity] struct {
	mu    sync.RWMutex
	items []T
	index map[model.ID]int

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObs   int
}

func NewCollection[T Entity]() *Collection[T] {
	return &Collection[T]{
		index:     make(map[model.ID]int),
		observers: make(map[int]func(Change)),
	}
}

// Upsert replaces the entity with the same id or appends it.
func (c *Collection[T]) Upsert(item T) {
	id := item.EntityID()
	c.mu.Lock()
	if pos, ok := c.index[id]; ok {
		c.items[pos] = item
	} else {
		c.index[id] = len(c.items)
		c.items = append(c.items, item)
	}
	c.mu.Unlock()
	c.notify(Change{Kind: ChangeUpsert, ID: id})
}

// Delete removes id and reports whether it was present. Unknown ids are
// not an error.
func (c *Collection[T]) Delete(id model.ID) bool {
	c.mu.Lock()
	pos, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items[:pos], c.items[pos+1:]...)
	c.reindexLocked()
	c.mu.Unlock()
	c.notify(Change{Kind: ChangeDelete, ID: id})
	return true
}

// Replace swaps the whole collection. Later duplicates of an id win but
// keep the position of the first occurrence.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = make([]T, 0, len(items))
	c.index = make(map[model.ID]int, len(items))
	for _, item := range items {
		id := item.EntityID()
		if pos, ok := c.index[id]; ok {
			c.items[pos] = item
			continue
		}
		c.index[id] = len(c.items)
		c.items = append(c.items, item)
	}
	c.mu.Unlock()
	c.notify(Change{Kind: ChangeReplace})
}

func (c *Collection[T]) Clear() {
	c.mu.Lock()
	c.items = nil
	c.index = make(map[model.ID]int)
	c.mu.Unlock()
	c.notify(Change{Kind: ChangeClear})
}

func (c *Collection[T]) Get(id model.ID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[pos], true
}

// All returns a copy in insertion order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Subscribe registers fn to run after every committed mutation and
// returns the function that removes it.
func (c *Collection[T]) Subscribe(fn func(Change)) func() {
	c.obsMu.Lock()
	key := c.nextObs
	c.nextObs++
	c.observers[key] = fn
	c.obsMu.Unlock()
	return func() {
		c.obsMu.Lock()
		delete(c.observers, key)
		c.obsMu.Unlock()
	}
}

func (c *Collection[T]) notify(change Change) {
	c.obsMu.Lock()
	keys := make([]int, 0, len(c.observers))
	for key := range c.observers {
		keys = append(keys, key)
	}
	fns := make([]func(Change), 0, len(keys))
	slices.Sort(keys)
	for _, key := range keys {
		fns = append(fns, c.observers[key])
	}
	c.obsMu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

func (c *Collection[T]) reindexLocked() {
	c.index = make(map[model.ID]int, len(c.items))
	for i, item := range c.items {
		c.index[item.EntityID()] = i
	}
}
