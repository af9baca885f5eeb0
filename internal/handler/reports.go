package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"stockcount-api/internal/report"
	"stockcount-api/internal/service"
	"stockcount-api/pkg/apierror"
	"stockcount-api/pkg/response"
)

// ReportHandler serves activity reports.
type ReportHandler struct {
	inventoryService *service.InventoryService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(inventoryService *service.InventoryService) *ReportHandler {
	return &ReportHandler{inventoryService: inventoryService}
}

// window reads ?hours=, defaulting to 24 and capped at one week.
func window(r *http.Request) time.Duration {
	hours, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || hours < 1 || hours > 168 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// Recent handles GET /api/v1/reports/recent
func (h *ReportHandler) Recent(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.inventoryService.RecentActivity(r.Context(), time.Now(), window(r)))
}

// RecentXLSX handles GET /api/v1/reports/recent.xlsx
func (h *ReportHandler) RecentXLSX(w http.ResponseWriter, r *http.Request) {
	rep := h.inventoryService.RecentActivity(r.Context(), time.Now(), window(r))

	var buf bytes.Buffer
	if err := report.WriteActivity(&buf, rep.Records, rep.From, rep.To, rep.Offline); err != nil {
		response.Error(w, apierror.ExportFailed("activity"))
		return
	}
	response.Attachment(w, report.ContentType, "recent-activity.xlsx", buf.Bytes())
}
