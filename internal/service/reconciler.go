package service

import (
	"strings"

	"stockcount-api/internal/model"
)

// Status labels that mark a record as done, compared case-insensitively.
var doneStatuses = map[string]struct{}{
	"complete":   {},
	"completed":  {},
	"concluído":  {},
	"concluido":  {},
	"concluídos": {},
	"concluidos": {},
	"done":       {},
	"finalizado": {},
}

// IsComplete classifies a single record in isolation: a positive counted quantity or a done status.
func IsComplete(r model.InventoryRecord) bool {
	if r.CountedQty != nil && *r.CountedQty > 0 {
		return true
	}
	_, ok := doneStatuses[strings.ToLower(strings.TrimSpace(r.Status))]
	return ok
}

// StatusFilter selects records by IsComplete.
type StatusFilter string

const (
	FilterAll      StatusFilter = ""
	FilterComplete StatusFilter = "complete"
	FilterPending  StatusFilter = "pending"
)

// ParseStatusFilter accepts "", "all", "complete" and "pending", case-insensitively.
func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, true
	case string(FilterComplete):
		return FilterComplete, true
	case string(FilterPending):
		return FilterPending, true
	}
	return FilterAll, false
}

// FilterByStatus returns the records matching filter. FilterAll returns rows unchanged.
func FilterByStatus(rows []model.InventoryRecord, filter StatusFilter) []model.InventoryRecord {
	if filter == FilterAll {
		return rows
	}
	want := filter == FilterComplete
	out := make([]model.InventoryRecord, 0, len(rows))
	for _, r := range rows {
		if IsComplete(r) == want {
			out = append(out, r)
		}
	}
	return out
}

// CompletedKeySet returns the barcodes present in a set of Results rows.
// Every Results row counts as complete regardless of its fields.
func CompletedKeySet(results []model.InventoryRecord) map[int64]struct{} {
	done := make(map[int64]struct{}, len(results))
	for _, r := range results {
		if key, ok := r.Key(); ok {
			done[key] = struct{}{}
		}
	}
	return done
}

// Reconcile returns copies of rows with their status set from Results presence.
// Rows absent from done keep a non-empty status and otherwise become Pending.
func Reconcile(rows []model.InventoryRecord, done map[int64]struct{}) []model.InventoryRecord {
	out := make([]model.InventoryRecord, len(rows))
	for i, r := range rows {
		if key, ok := r.Key(); ok {
			if _, complete := done[key]; complete {
				r.Status = model.StatusComplete
				out[i] = r
				continue
			}
		}
		if strings.TrimSpace(r.Status) == "" {
			r.Status = model.StatusPending
		}
		out[i] = r
	}
	return out
}

// Summarize counts completed and pending Comparison rows.
// Completed is resultsRowCount when positive, otherwise the size of done.
// Pending counts rows whose key is not in done; rows without a usable key are pending.
func Summarize(rows []model.InventoryRecord, done map[int64]struct{}, resultsRowCount int) model.StatusSummary {
	completed := len(done)
	if resultsRowCount > 0 {
		completed = resultsRowCount
	}

	pending := 0
	for _, r := range rows {
		key, ok := r.Key()
		if !ok {
			pending++
			continue
		}
		if _, complete := done[key]; !complete {
			pending++
		}
	}

	return model.StatusSummary{
		Completed: completed,
		Pending:   pending,
		Total:     len(rows),
	}
}
