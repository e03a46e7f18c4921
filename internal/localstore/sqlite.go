// Package localstore is the local-first backend: every mutation is
// applied and persisted to a SQLite file immediately, with no server
// round trip. It serves the same collaborator interfaces as the REST
// client so the stores cannot tell the two apart.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/simonjohansson/deskboard/internal/clock"
	"github.com/simonjohansson/deskboard/internal/model"
)

// ErrNotFound is returned when an id has no row.
var ErrNotFound = errors.New("not found")

// RestoreStatus is where a restored todo lands.
const RestoreStatus = "todo"

// timeLayout keeps fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Options struct {
	// Path is the SQLite file. ":memory:" keeps everything in memory.
	Path   string
	Clock  clock.Clock
	Logger *slog.Logger
	// Actor is recorded as creator and comment author.
	Actor model.User
	// NewID overrides uuid generation.
	NewID func() string
}

type Store struct {
	db     *sql.DB
	clock  clock.Clock
	logger *slog.Logger
	newID  func() string

	// writeMu serialises read-modify-write cycles.
	writeMu sync.Mutex

	mu    sync.Mutex
	actor model.User
}

func Open(opts Options) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("localstore: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	s := &Store{db: db, clock: clk, logger: logger, newID: newID, actor: opts.Actor}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetActor changes who subsequent mutations are attributed to.
func (s *Store) SetActor(user model.User) {
	s.mu.Lock()
	s.actor = user
	s.mu.Unlock()
}

func (s *Store) currentActor() model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actor
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS tickets (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  created_by TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS todos (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  created_by TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS columns (
  id TEXT PRIMARY KEY,
  order_index INTEGER NOT NULL,
  data TEXT NOT NULL
);
`)
	return err
}

func (s *Store) now() model.Timestamp {
	return model.NewTimestamp(s.clock.Now().Truncate(time.Millisecond))
}

func (s *Store) nextID() model.ID {
	return model.ID(s.newID())
}

// row is the shape shared by the ticket and todo tables.
type row struct {
	id        model.ID
	status    string
	createdBy model.ID
	createdAt model.Timestamp
	updatedAt model.Timestamp
	data      any
}

func upsertRow(ctx context.Context, db *sql.DB, table string, r row) error {
	raw, err := json.Marshal(r.data)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO `+table+` (id, status, created_by, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status = excluded.status,
  created_by = excluded.created_by,
  data = excluded.data,
  created_at = excluded.created_at,
  updated_at = excluded.updated_at;
`,
		r.id.String(),
		r.status,
		r.createdBy.String(),
		string(raw),
		r.createdAt.UTC().Format(timeLayout),
		r.updatedAt.UTC().Format(timeLayout),
	)
	return err
}

func loadRow[T any](ctx context.Context, db *sql.DB, table string, id model.ID) (T, error) {
	var (
		out T
		raw string
	)
	err := db.QueryRowContext(ctx, `SELECT data FROM `+table+` WHERE id = ?`, id.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, err
	}
	return out, nil
}

func listRows[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var item T
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func deleteRow(ctx context.Context, db *sql.DB, table string, id model.ID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return nil
}

func (s *Store) newComment(text string) (model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Comment{}, fmt.Errorf("comment text is required")
	}
	actor := s.currentActor()
	return model.Comment{
		ID:         s.nextID(),
		Text:       text,
		AuthorID:   actor.ID,
		AuthorName: actor.Username,
		CreatedAt:  s.now(),
	}, nil
}
