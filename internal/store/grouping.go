package store

import "github.com/simonjohansson/deskboard/internal/model"

type ColumnGroup struct {
	Column model.Column `json:"column"`
	Todos  []model.Todo `json:"todos"`
}

// Grouping is a board view of a todo list. Cards whose status matches no
// column land in Unmatched; they are never dropped.
type Grouping struct {
	Columns   []ColumnGroup `json:"columns"`
	Unmatched []model.Todo  `json:"unmatched"`
	Archived  []model.Todo  `json:"archived"`
}

// GroupByColumn distributes todos over columns, keeping each input order.
func GroupByColumn(todos []model.Todo, columns []model.Column) Grouping {
	ordered := sortColumns(columns)
	out := Grouping{Columns: make([]ColumnGroup, len(ordered))}
	byStatus := make(map[string]int, len(ordered))
	for i, column := range ordered {
		out.Columns[i] = ColumnGroup{Column: column, Todos: []model.Todo{}}
		if _, dup := byStatus[column.Status]; !dup {
			byStatus[column.Status] = i
		}
	}
	for _, todo := range todos {
		if i, ok := byStatus[todo.Status]; ok {
			out.Columns[i].Todos = append(out.Columns[i].Todos, todo)
			continue
		}
		if todo.Status == model.TodoStatusArchived {
			out.Archived = append(out.Archived, todo)
			continue
		}
		out.Unmatched = append(out.Unmatched, todo)
	}
	return out
}
