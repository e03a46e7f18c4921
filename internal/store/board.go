package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simonjohansson/deskboard/internal/clock"
	"github.com/simonjohansson/deskboard/internal/model"
)

const DefaultSaveDelay = 500 * time.Millisecond

var (
	ErrDuplicateStatus = errors.New("column status already in use")
	ErrColumnNotFound  = errors.New("column not found")
	ErrInvalidColumn   = errors.New("invalid column")
	ErrLastColumn      = errors.New("cannot remove the last column")
)

// ColumnColors is the palette a column color must come from.
var ColumnColors = []string{"primary", "secondary", "accent", "muted"}

type BoardOptions struct {
	Clock     clock.Clock
	Logger    *slog.Logger
	SaveDelay time.Duration
	// OnSaveError receives failures of debounced saves.
	OnSaveError func(error)
}

// Board is the shared column layout. Remote updates replace it whole;
// local edits are published after a quiet period of SaveDelay.
type Board struct {
	api         ColumnAPI
	clock       clock.Clock
	logger      *slog.Logger
	saveDelay   time.Duration
	onSaveError func(error)

	mu        sync.Mutex
	columns   []model.Column
	saveTimer *clock.Timer
	dirty     bool

	obsMu     sync.Mutex
	observers map[int]func()
	nextObs   int
}

func NewBoard(api ColumnAPI, opts BoardOptions) *Board {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	delay := opts.SaveDelay
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &Board{
		api:         api,
		clock:       clk,
		logger:      logger,
		saveDelay:   delay,
		onSaveError: opts.OnSaveError,
		columns:     model.DefaultColumns(),
		observers:   make(map[int]func()),
	}
}

// Load fetches the stored layout. An empty layout, or a failed fetch,
// leaves the board on the default columns.
func (b *Board) Load(ctx context.Context) error {
	columns, err := b.api.ListColumns(ctx)
	if err != nil {
		b.logger.Warn("load columns failed", "error", err)
		b.set(model.DefaultColumns())
		return err
	}
	if len(columns) == 0 {
		b.set(model.DefaultColumns())
		return nil
	}
	b.set(sortColumns(columns))
	return nil
}

// ApplyRemote replaces the layout with a broadcast one. The last writer
// wins; there is no merge with local edits.
func (b *Board) ApplyRemote(columns []model.Column) {
	b.set(sortColumns(columns))
}

func (b *Board) set(columns []model.Column) {
	b.mu.Lock()
	b.columns = columns
	b.mu.Unlock()
	b.notify()
}

// Columns returns the layout in display order.
func (b *Board) Columns() []model.Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneColumns(b.columns)
}

func (b *Board) Column(id model.ID) (model.Column, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(id); i >= 0 {
		return b.columns[i], true
	}
	return model.Column{}, false
}

// AddColumn appends a column with a generated id. An empty status gets a
// generated custom key.
func (b *Board) AddColumn(title, status, color string) (model.Column, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Column{}, fmt.Errorf("%w: title is required", ErrInvalidColumn)
	}
	suffix := uuid.NewString()
	status = strings.TrimSpace(status)
	if status == "" {
		status = "custom_" + suffix
	}
	if color == "" {
		color = model.DefaultColumnColor
	}
	if !slices.Contains(ColumnColors, color) {
		return model.Column{}, fmt.Errorf("%w: unknown color %q", ErrInvalidColumn, color)
	}

	b.mu.Lock()
	if b.statusTakenLocked(status, "") {
		b.mu.Unlock()
		return model.Column{}, fmt.Errorf("%w: %s", ErrDuplicateStatus, status)
	}
	column := model.Column{
		ID:         model.ID("column-" + suffix),
		Title:      title,
		Status:     status,
		Color:      color,
		OrderIndex: len(b.columns),
	}
	b.columns = append(b.columns, column)
	b.scheduleSaveLocked()
	b.mu.Unlock()
	b.notify()
	return column, nil
}

func (b *Board) RenameColumn(id model.ID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidColumn)
	}
	return b.edit(id, func(c *model.Column) error {
		c.Title = title
		return nil
	})
}

func (b *Board) SetColor(id model.ID, color string) error {
	if !slices.Contains(ColumnColors, color) {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidColumn, color)
	}
	return b.edit(id, func(c *model.Column) error {
		c.Color = color
		return nil
	})
}

// SetBackground sets or, with nil, clears the background image.
func (b *Board) SetBackground(id model.ID, image *string) error {
	return b.edit(id, func(c *model.Column) error {
		c.BackgroundImage = image
		return nil
	})
}

// SetStatus changes the grouping key of a column.
func (b *Board) SetStatus(id model.ID, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("%w: status is required", ErrInvalidColumn)
	}
	return b.edit(id, func(c *model.Column) error {
		if b.statusTakenLocked(status, id) {
			return fmt.Errorf("%w: %s", ErrDuplicateStatus, status)
		}
		c.Status = status
		return nil
	})
}

// edit runs fn on a copy of the column with b.mu held.
func (b *Board) edit(id model.ID, fn func(*model.Column) error) error {
	b.mu.Lock()
	i := b.indexLocked(id)
	if i < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrColumnNotFound, id)
	}
	updated := b.columns[i]
	if err := fn(&updated); err != nil {
		b.mu.Unlock()
		return err
	}
	b.columns[i] = updated
	b.scheduleSaveLocked()
	b.mu.Unlock()
	b.notify()
	return nil
}

// RemoveColumn drops a column and returns the removed column together
// with the status of the first remaining column, where its cards belong.
func (b *Board) RemoveColumn(id model.ID) (removed model.Column, fallbackStatus string, err error) {
	b.mu.Lock()
	i := b.indexLocked(id)
	if i < 0 {
		b.mu.Unlock()
		return model.Column{}, "", fmt.Errorf("%w: %s", ErrColumnNotFound, id)
	}
	if len(b.columns) == 1 {
		b.mu.Unlock()
		return model.Column{}, "", ErrLastColumn
	}
	removed = b.columns[i]
	b.columns = slices.Delete(b.columns, i, i+1)
	reindex(b.columns)
	fallbackStatus = b.columns[0].Status
	b.scheduleSaveLocked()
	b.mu.Unlock()
	b.notify()
	return removed, fallbackStatus, nil
}

// Reorder puts the columns in the order of ids, which must name every
// column exactly once.
func (b *Board) Reorder(ids []model.ID) error {
	b.mu.Lock()
	if len(ids) != len(b.columns) {
		b.mu.Unlock()
		return fmt.Errorf("%w: expected %d column ids, got %d", ErrInvalidColumn, len(b.columns), len(ids))
	}
	next := make([]model.Column, 0, len(ids))
	seen := make(map[model.ID]struct{}, len(ids))
	for _, id := range ids {
		i := b.indexLocked(id)
		if i < 0 {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrColumnNotFound, id)
		}
		if _, dup := seen[id]; dup {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s listed twice", ErrInvalidColumn, id)
		}
		seen[id] = struct{}{}
		next = append(next, b.columns[i])
	}
	reindex(next)
	b.columns = next
	b.scheduleSaveLocked()
	b.mu.Unlock()
	b.notify()
	return nil
}

// Reset restores the default layout and publishes it.
func (b *Board) Reset() {
	b.mu.Lock()
	b.columns = model.DefaultColumns()
	b.scheduleSaveLocked()
	b.mu.Unlock()
	b.notify()
}

func (b *Board) scheduleSaveLocked() {
	b.dirty = true
	if b.saveTimer != nil {
		b.saveTimer.Stop()
	}
	b.saveTimer = b.clock.AfterFunc(b.saveDelay, func() {
		if err := b.Flush(context.Background()); err != nil && b.onSaveError != nil {
			b.onSaveError(err)
		}
	})
}

// Pending reports whether local edits have not been published yet.
func (b *Board) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// Flush publishes pending local edits now. It is a no-op when nothing is
// pending.
func (b *Board) Flush(ctx context.Context) error {
	b.mu.Lock()
	if b.saveTimer != nil {
		b.saveTimer.Stop()
		b.saveTimer = nil
	}
	if !b.dirty {
		b.mu.Unlock()
		return nil
	}
	b.dirty = false
	columns := cloneColumns(b.columns)
	b.mu.Unlock()

	reindex(columns)
	if _, err := b.api.SaveColumns(ctx, columns); err != nil {
		b.logger.Warn("save columns failed", "error", err)
		b.mu.Lock()
		b.dirty = true
		b.mu.Unlock()
		return err
	}
	b.logger.Debug("columns saved", "count", len(columns))
	return nil
}

// Stop cancels a pending debounced save without publishing it.
func (b *Board) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveTimer != nil {
		b.saveTimer.Stop()
		b.saveTimer = nil
	}
}

// Discard drops unpublished edits and puts the board back on the default
// layout without scheduling a save.
func (b *Board) Discard() {
	b.mu.Lock()
	if b.saveTimer != nil {
		b.saveTimer.Stop()
		b.saveTimer = nil
	}
	b.dirty = false
	b.columns = model.DefaultColumns()
	b.mu.Unlock()
	b.notify()
}

// Subscribe registers fn to run after every layout change.
func (b *Board) Subscribe(fn func()) func() {
	b.obsMu.Lock()
	key := b.nextObs
	b.nextObs++
	b.observers[key] = fn
	b.obsMu.Unlock()
	return func() {
		b.obsMu.Lock()
		delete(b.observers, key)
		b.obsMu.Unlock()
	}
}

func (b *Board) notify() {
	b.obsMu.Lock()
	keys := make([]int, 0, len(b.observers))
	for key := range b.observers {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	fns := make([]func(), 0, len(keys))
	for _, key := range keys {
		fns = append(fns, b.observers[key])
	}
	b.obsMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (b *Board) indexLocked(id model.ID) int {
	for i, column := range b.columns {
		if column.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) statusTakenLocked(status string, except model.ID) bool {
	for _, column := range b.columns {
		if column.Status == status && column.ID != except {
			return true
		}
	}
	return false
}

func sortColumns(columns []model.Column) []model.Column {
	out := cloneColumns(columns)
	slices.SortStableFunc(out, func(a, b model.Column) int {
		return a.OrderIndex - b.OrderIndex
	})
	return out
}

func reindex(columns []model.Column) {
	for i := range columns {
		columns[i].OrderIndex = i
	}
}

func cloneColumns(columns []model.Column) []model.Column {
	out := make([]model.Column, len(columns))
	copy(out, columns)
	return out
}
