package handler

import (
	"net/http"
	"runtime"
	"time"

	"stockcount-api/internal/audit"
	"stockcount-api/internal/cache"
	"stockcount-api/internal/repository"
	"stockcount-api/internal/service"
	"stockcount-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	inventoryService *service.InventoryService
	snapshots        repository.SnapshotRepository
	pending          cache.PendingStore
	names            *cache.MemoryCache
	journal          *audit.Journal
	scheduler        *service.SyncScheduler
	storageType      string
	startTime        time.Time
}

// AdminConfig holds the dependencies of the admin handler. Nil fields are reported as not configured.
type AdminConfig struct {
	InventoryService *service.InventoryService
	Snapshots        repository.SnapshotRepository
	Pending          cache.PendingStore
	Names            *cache.MemoryCache
	Journal          *audit.Journal
	Scheduler        *service.SyncScheduler
	StorageType      string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		inventoryService: cfg.InventoryService,
		snapshots:        cfg.Snapshots,
		pending:          cfg.Pending,
		names:            cfg.Names,
		journal:          cfg.Journal,
		scheduler:        cfg.Scheduler,
		storageType:      cfg.StorageType,
		startTime:        time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["storage_type"] = h.storageType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Pending items
	if h.pending != nil {
		count, err := h.pending.Count(ctx)
		if err == nil {
			stats["pending"] = map[string]interface{}{
				"items":  count,
				"status": "connected",
			}
		} else {
			stats["pending"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["pending"] = map[string]interface{}{"status": "not_configured"}
	}

	// Snapshot storage
	if h.snapshots != nil {
		storageStats, err := h.snapshots.GetStats(ctx)
		if err == nil {
			storageStats["status"] = "connected"
			stats["storage"] = storageStats
		} else {
			stats["storage"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["storage"] = map[string]interface{}{"status": "not_configured"}
	}

	if h.inventoryService != nil {
		stats["caches"] = h.inventoryService.CacheOverview()
		if rows, ok := h.inventoryService.RowStats(ctx); ok {
			stats["row_stats"] = rows
		}
	}
	if h.names != nil {
		stats["name_cache"] = h.names.Stats()
	}
	if h.journal != nil {
		stats["audit_dropped"] = h.journal.Dropped()
	}
	if h.scheduler != nil {
		if last, ok := h.scheduler.LastResult(); ok {
			stats["last_scheduled_sync"] = last
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// GetHealth handles GET /api/v1/admin/health
func (h *AdminHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
