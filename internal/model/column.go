package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

const DefaultColumnColor = "primary"

// Column is one lane of the todo board. Status is the grouping key for
// todos and is unique across the board.
type Column struct {
	ID              ID
	Title           string
	Status          string
	Color           string
	BackgroundImage *string
	OrderIndex      int
}

type columnWire struct {
	ColumnID        ID      `json:"column_id"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	Color           string  `json:"color"`
	BackgroundImage *string `json:"background_image"`
	OrderIndex      string  `json:"order_index"`
}

// columnWireIn also accepts the camelCase keys some broadcasts use.
type columnWireIn struct {
	ColumnID           ID              `json:"column_id"`
	LegacyID           ID              `json:"id"`
	Title              string          `json:"title"`
	Status             string          `json:"status"`
	Color              string          `json:"color"`
	BackgroundImage    *string         `json:"background_image"`
	BackgroundImageAlt *string         `json:"backgroundImage"`
	OrderIndex         json.RawMessage `json:"order_index"`
}

func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(columnWire{
		ColumnID:        c.ID,
		Title:           c.Title,
		Status:          c.Status,
		Color:           c.Color,
		BackgroundImage: c.BackgroundImage,
		OrderIndex:      strconv.Itoa(c.OrderIndex),
	})
}

func (c *Column) UnmarshalJSON(data []byte) error {
	var in columnWireIn
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Column{
		ID:              in.ColumnID,
		Title:           in.Title,
		Status:          in.Status,
		Color:           strings.TrimSpace(in.Color),
		BackgroundImage: in.BackgroundImage,
		OrderIndex:      parseOrderIndex(in.OrderIndex),
	}
	if out.ID.IsZero() {
		out.ID = in.LegacyID
	}
	if out.BackgroundImage == nil {
		out.BackgroundImage = in.BackgroundImageAlt
	}
	if out.Color == "" {
		out.Color = DefaultColumnColor
	}
	*c = out
	return nil
}

func parseOrderIndex(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

// DefaultColumns is the layout a board starts with when the server has
// none stored.
func DefaultColumns() []Column {
	return []Column{
		{ID: "todo", Title: "To do", Status: "todo", Color: "primary", OrderIndex: 0},
		{ID: "in_progress", Title: "In progress", Status: "in_progress", Color: "secondary", OrderIndex: 1},
		{ID: "done", Title: "Done", Status: "done", Color: "accent", OrderIndex: 2},
	}
}
