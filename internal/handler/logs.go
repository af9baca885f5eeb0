package handler

import (
	"net/http"

	"stockcount-api/internal/audit"
	"stockcount-api/pkg/apierror"
	"stockcount-api/pkg/response"
)

// LogHandler serves the audit journal.
type LogHandler struct {
	journal *audit.Journal
}

// NewLogHandler creates a new audit log handler.
func NewLogHandler(journal *audit.Journal) *LogHandler {
	return &LogHandler{journal: journal}
}

// GetAuditLogs returns paginated audit entries, newest first.
func (h *LogHandler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r, 20, 100)
	offset := (page - 1) * limit

	entries, total, err := h.journal.Entries(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, apierror.InternalError("Failed to fetch logs"))
		return
	}

	response.JSONWithMeta(w, http.StatusOK, entries, page, limit, total)
}

// ClearAuditLogs removes every audit entry.
func (h *LogHandler) ClearAuditLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.Clear(r.Context()); err != nil {
		response.Error(w, apierror.InternalError("Failed to clear logs"))
		return
	}
	response.NoContent(w)
}
