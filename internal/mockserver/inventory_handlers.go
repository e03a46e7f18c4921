package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simonjohansson/deskboard/internal/model"
)

const maxInventoryUpload = 8 << 20

func (s *Server) registerInventoryOperations() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listInventory",
		Method:      http.MethodGet,
		Path:        "/inventory/",
		Summary:     "List inventory items",
	}, s.listInventory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getInventoryItem",
		Method:      http.MethodGet,
		Path:        "/inventory/{id}",
		Summary:     "Get inventory item",
		Errors:      []int{http.StatusNotFound},
	}, s.getInventoryItem)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteInventoryItem",
		Method:        http.MethodDelete,
		Path:          "/inventory/{id}",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Delete inventory item",
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, s.deleteInventoryItem)
}

func (s *Server) listInventory(_ context.Context, _ *struct{}) (*output[[]model.InventoryItem], error) {
	s.invMu.RLock()
	defer s.invMu.RUnlock()
	out := make([]model.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b model.InventoryItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return &output[[]model.InventoryItem]{Body: out}, nil
}

func (s *Server) getInventoryItem(_ context.Context, input *idInput) (*output[model.InventoryItem], error) {
	s.invMu.RLock()
	item, ok := s.inventory[model.ID(input.ID)]
	s.invMu.RUnlock()
	if !ok {
		return nil, huma.Error404NotFound("inventory item not found")
	}
	return &output[model.InventoryItem]{Body: item}, nil
}

func (s *Server) deleteInventoryItem(ctx context.Context, input *idInput) (*struct{}, error) {
	if err := requirePrivileged(userFrom(ctx)); err != nil {
		return nil, err
	}
	id := model.ID(input.ID)
	s.invMu.Lock()
	defer s.invMu.Unlock()
	if _, ok := s.inventory[id]; !ok {
		return nil, huma.Error404NotFound("inventory item not found")
	}
	delete(s.inventory, id)
	delete(s.images, id)
	return nil, nil
}

// inventoryForm is the multipart body shared by create and update.
type inventoryForm struct {
	name         string
	category     string
	serialNumber string
	location     string
	assignedTo   *model.ID
	image        []byte
	hasImage     bool
}

func parseInventoryForm(r *http.Request) (inventoryForm, error) {
	if err := r.ParseMultipartForm(maxInventoryUpload); err != nil {
		return inventoryForm{}, err
	}
	form := inventoryForm{
		name:         strings.TrimSpace(r.FormValue("name")),
		category:     r.FormValue("category"),
		serialNumber: r.FormValue("serial_number"),
		location:     r.FormValue("location"),
	}
	if assignee := strings.TrimSpace(r.FormValue("assigned_to")); assignee != "" {
		id := model.ID(assignee)
		form.assignedTo = &id
	}
	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return inventoryForm{}, err
	default:
		defer file.Close()
		if form.image, err = io.ReadAll(file); err != nil {
			return inventoryForm{}, err
		}
		form.hasImage = true
	}
	return form, nil
}

func inventoryImageURL(id model.ID) *string {
	return model.Ptr(APIPrefix + "/inventory/" + id.String() + "/image")
}

func (s *Server) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	if !userFrom(r.Context()).Role.Privileged() {
		writeProblem(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	form, err := parseInventoryForm(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	if form.name == "" {
		writeProblem(w, http.StatusBadRequest, "name is required")
		return
	}
	now := s.now()
	item := model.InventoryItem{
		ID:           model.ID(uuid.NewString()),
		Name:         form.name,
		Category:     form.category,
		SerialNumber: form.serialNumber,
		Location:     form.location,
		AssignedTo:   form.assignedTo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.invMu.Lock()
	if form.hasImage {
		s.images[item.ID] = form.image
		item.ImageURL = inventoryImageURL(item.ID)
	}
	s.inventory[item.ID] = item
	s.invMu.Unlock()
	s.logger.Info("inventory item created", "item_id", item.ID, "image", form.hasImage)
	writeJSON(w, http.StatusCreated, item)
}

// updateInventoryItem replaces the item's fields. The stored image is kept
// unless a new one is uploaded.
func (s *Server) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	if !userFrom(r.Context()).Role.Privileged() {
		writeProblem(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	id := model.ID(chi.URLParam(r, "id"))
	form, err := parseInventoryForm(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	s.invMu.Lock()
	item, ok := s.inventory[id]
	if !ok {
		s.invMu.Unlock()
		writeProblem(w, http.StatusNotFound, "inventory item not found")
		return
	}
	if form.name != "" {
		item.Name = form.name
	}
	item.Category = form.category
	item.SerialNumber = form.serialNumber
	item.Location = form.location
	item.AssignedTo = form.assignedTo
	item.UpdatedAt = s.now()
	if form.hasImage {
		s.images[id] = form.image
		item.ImageURL = inventoryImageURL(id)
	}
	s.inventory[id] = item
	s.invMu.Unlock()
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) inventoryImage(w http.ResponseWriter, r *http.Request) {
	s.invMu.RLock()
	image, ok := s.images[model.ID(chi.URLParam(r, "id"))]
	s.invMu.RUnlock()
	if !ok {
		writeProblem(w, http.StatusNotFound, "image not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(image))
	_, _ = w.Write(image)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
