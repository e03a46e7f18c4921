package apiclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/simonjohansson/deskboard/internal/model"
)

func (c *Client) ListInventory(ctx context.Context) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	if err := c.doJSON(ctx, http.MethodGet, "/inventory/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetInventoryItem(ctx context.Context, id model.ID) (model.InventoryItem, error) {
	path, err := buildPath("/inventory/{id}", "id", id.String())
	if err != nil {
		return model.InventoryItem{}, err
	}
	var out model.InventoryItem
	err = c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// CreateInventoryItem sends the draft as multipart form data so an image
// can travel with it.
func (c *Client) CreateInventoryItem(ctx context.Context, draft model.InventoryDraft) (model.InventoryItem, error) {
	return c.sendInventory(ctx, http.MethodPost, "/inventory/", draft)
}

func (c *Client) UpdateInventoryItem(ctx context.Context, id model.ID, draft model.InventoryDraft) (model.InventoryItem, error) {
	path, err := buildPath("/inventory/{id}", "id", id.String())
	if err != nil {
		return model.InventoryItem{}, err
	}
	return c.sendInventory(ctx, http.MethodPut, path, draft)
}

func (c *Client) DeleteInventoryItem(ctx context.Context, id model.ID) error {
	path, err := buildPath("/inventory/{id}", "id", id.String())
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) sendInventory(ctx context.Context, method, path string, draft model.InventoryDraft) (model.InventoryItem, error) {
	body, contentType, err := inventoryForm(draft)
	if err != nil {
		return model.InventoryItem{}, newError(CodeValidation, 0, "encode inventory form", err)
	}
	var out model.InventoryItem
	err = c.do(ctx, method, path, contentType, body, &out)
	return out, err
}

func inventoryForm(draft model.InventoryDraft) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", draft.Name},
		{"category", draft.Category},
		{"serial_number", draft.SerialNumber},
		{"location", draft.Location},
	}
	if draft.AssignedTo != nil && !draft.AssignedTo.IsZero() {
		fields = append(fields, [2]string{"assigned_to", draft.AssignedTo.String()})
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}
	if draft.Image != nil && draft.Image.Content != nil {
		part, err := w.CreateFormFile("image", draft.Image.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, draft.Image.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
