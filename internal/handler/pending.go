package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"stockcount-api/internal/cache"
	"stockcount-api/internal/model"
	"stockcount-api/internal/service"
	"stockcount-api/pkg/apierror"
	"stockcount-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// PendingHandler manages locally captured items awaiting submission.
type PendingHandler struct {
	inventoryService *service.InventoryService
}

// NewPendingHandler creates a new pending handler.
func NewPendingHandler(inventoryService *service.InventoryService) *PendingHandler {
	return &PendingHandler{inventoryService: inventoryService}
}

// List handles GET /api/v1/pending
func (h *PendingHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventoryService.PendingItems(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to read pending items"))
		return
	}
	if items == nil {
		items = []model.ScannedItem{}
	}
	response.OK(w, items)
}

// Add handles POST /api/v1/pending
func (h *PendingHandler) Add(w http.ResponseWriter, r *http.Request) {
	var item model.ScannedItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	added, err := h.inventoryService.AddPending(r.Context(), item)
	if err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			response.Error(w, validationError(err))
		case errors.Is(err, cache.ErrInvalidKey):
			response.Error(w, apierror.BadRequest("barcode_id is required"))
		default:
			response.Error(w, apierror.InternalError("failed to store item"))
		}
		return
	}

	if !added {
		response.Error(w, apierror.AlreadyPending(item.Key()))
		return
	}
	response.Created(w, map[string]interface{}{
		"barcode_id": item.Key(),
		"status":     "pending",
	})
}

// Remove handles DELETE /api/v1/pending/{barcode}
func (h *PendingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.inventoryService.RemovePending(r.Context(), chi.URLParam(r, "barcode")); err != nil {
		response.Error(w, apierror.InternalError("failed to remove item"))
		return
	}
	response.NoContent(w)
}

// Clear handles DELETE /api/v1/pending
func (h *PendingHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.inventoryService.ClearPending(r.Context()); err != nil {
		response.Error(w, apierror.InternalError("failed to clear pending items"))
		return
	}
	response.NoContent(w)
}

// Submit handles POST /api/v1/pending/submit
func (h *PendingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.inventoryService.SubmitPending(r.Context()))
}
