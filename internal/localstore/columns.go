package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/simonjohansson/deskboard/internal/model"
)

// ListColumns returns the stored layout ordered by order_index. An empty
// table yields no columns; the board falls back to its defaults.
func (s *Store) ListColumns(ctx context.Context) ([]model.Column, error) {
	return listRows[model.Column](ctx, s.db, `SELECT data FROM columns ORDER BY order_index ASC, id ASC`)
}

// SaveColumns replaces the whole layout in one transaction.
func (s *Store) SaveColumns(ctx context.Context, columns []model.Column) (_ []model.Column, err error) {
	seen := make(map[string]struct{}, len(columns))
	for _, column := range columns {
		if column.ID.IsZero() || column.Status == "" {
			return nil, fmt.Errorf("column id and status are required")
		}
		if _, dup := seen[column.Status]; dup {
			return nil, fmt.Errorf("duplicate column status %q", column.Status)
		}
		seen[column.Status] = struct{}{}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM columns`); err != nil {
		return nil, err
	}
	saved := make([]model.Column, 0, len(columns))
	for i, column := range columns {
		column.OrderIndex = i
		if column.Color == "" {
			column.Color = model.DefaultColumnColor
		}
		var raw []byte
		if raw, err = json.Marshal(column); err != nil {
			return nil, err
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO columns (id, order_index, data) VALUES (?, ?, ?)`, column.ID.String(), i, string(raw)); err != nil {
			return nil, err
		}
		saved = append(saved, column)
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}
