package handler

import (
	"net/http"

	"stockcount-api/internal/service"
	"stockcount-api/pkg/apierror"
	"stockcount-api/pkg/response"
)

// CacheHandler exposes the local table caches.
type CacheHandler struct {
	inventoryService *service.InventoryService
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(inventoryService *service.InventoryService) *CacheHandler {
	return &CacheHandler{inventoryService: inventoryService}
}

// Overview handles GET /api/v1/cache
func (h *CacheHandler) Overview(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.inventoryService.CacheOverview())
}

// Table handles GET /api/v1/cache/{table}
func (h *CacheHandler) Table(w http.ResponseWriter, r *http.Request) {
	table, apiErr := tableParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	response.OK(w, h.inventoryService.CachedTable(table))
}

// Meta handles GET /api/v1/cache/{table}/meta
func (h *CacheHandler) Meta(w http.ResponseWriter, r *http.Request) {
	table, apiErr := tableParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	response.OK(w, h.inventoryService.CacheInfo(table))
}

// Clear handles DELETE /api/v1/cache/{table}
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	table, apiErr := tableParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if err := h.inventoryService.ClearCache(r.Context(), table); err != nil {
		response.Error(w, apierror.InternalError("failed to clear cache"))
		return
	}
	response.NoContent(w)
}
