package handler

import (
	"bytes"
	"net/http"
	"time"

	"stockcount-api/internal/model"
	"stockcount-api/internal/report"
	"stockcount-api/internal/service"
	"stockcount-api/pkg/apierror"
	"stockcount-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// InventoryHandler handles synchronization and reconciled reads.
type InventoryHandler struct {
	inventoryService *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryService *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// Sync handles POST /api/v1/sync
func (h *InventoryHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result := h.inventoryService.Sync(r.Context())
	response.OK(w, result)
}

// Summary handles GET /api/v1/status/summary
func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.inventoryService.StatusSummary(r.Context(), forceOnline(r)))
}

// Rows handles GET /api/v1/status/rows?status=complete|pending
func (h *InventoryHandler) Rows(w http.ResponseWriter, r *http.Request) {
	res, ok := filteredRows(w, r, func() service.ReadResult[[]model.InventoryRecord] {
		return h.inventoryService.ComparisonWithStatus(r.Context(), forceOnline(r))
	})
	if ok {
		response.OK(w, res)
	}
}

// RowsXLSX handles GET /api/v1/status/rows.xlsx
func (h *InventoryHandler) RowsXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	online := forceOnline(r)
	rows, ok := filteredRows(w, r, func() service.ReadResult[[]model.InventoryRecord] {
		return h.inventoryService.ComparisonWithStatus(ctx, online)
	})
	if !ok {
		return
	}
	summary := h.inventoryService.StatusSummary(ctx, online)

	var buf bytes.Buffer
	if err := report.WriteReconciled(&buf, rows.Value, summary, time.Now()); err != nil {
		response.Error(w, apierror.ExportFailed("status"))
		return
	}
	response.Attachment(w, report.ContentType, "inventory-status.xlsx", buf.Bytes())
}

// Record handles GET /api/v1/records/{barcode}
func (h *InventoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	writeLookup(w, barcode, h.inventoryService.LookupByBarcode(r.Context(), barcode, forceOnline(r)))
}

// Result handles GET /api/v1/results/{barcode}
func (h *InventoryHandler) Result(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	writeLookup(w, barcode, h.inventoryService.LookupResult(r.Context(), barcode, forceOnline(r)))
}

func writeLookup[T any](w http.ResponseWriter, barcode string, res service.ReadResult[T]) {
	if !res.Found {
		if res.Source != "" {
			w.Header().Set(response.ServedFromHeader, string(res.Source))
		}
		response.Error(w, apierror.RecordNotFound(barcode))
		return
	}
	response.Served(w, string(res.Source), res)
}

// Results handles GET /api/v1/results?status=complete|pending
func (h *InventoryHandler) Results(w http.ResponseWriter, r *http.Request) {
	res, ok := filteredRows(w, r, func() service.ReadResult[[]model.InventoryRecord] {
		return h.inventoryService.AllResults(r.Context(), forceOnline(r))
	})
	if ok {
		response.OK(w, res)
	}
}

// NamesRequest represents the request body for product name resolution.
type NamesRequest struct {
	Codes []int `json:"codes" validate:"required,min=1,max=5000,dive,gte=0"`
}

// Names handles POST /api/v1/products/names
func (h *InventoryHandler) Names(w http.ResponseWriter, r *http.Request) {
	var req NamesRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	response.OK(w, h.inventoryService.ResolveProductNames(r.Context(), req.Codes))
}

// Rounds handles GET /api/v1/rounds
func (h *InventoryHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.inventoryService.InventoryRounds(r.Context()))
}
