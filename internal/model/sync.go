package model

import "time"

// Table identifies a logical remote table mirrored by the cache.
type Table string

const (
	TableComparison Table = "comparison"
	TableResults    Table = "results"
	TableLookup     Table = "lookup"
	TableUsers      Table = "users"
)

// Tables lists the mirrored tables in synchronization order.
var Tables = []Table{TableLookup, TableComparison, TableResults, TableUsers}

// ParseTable maps a path segment to a Table.
func ParseTable(s string) (Table, bool) {
	for _, t := range Tables {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// CacheSnapshot is the durable form of one cache store.
type CacheSnapshot[V any] struct {
	Records  []V       `json:"records"`
	SyncedAt time.Time `json:"synced_at"`
}

// StageResult reports the outcome of one synchronization stage.
type StageResult struct {
	Table   Table  `json:"table"`
	Count   int    `json:"count"`
	Pages   int    `json:"pages"`
	Skipped int    `json:"skipped,omitempty"`
	Failed  bool   `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// SyncResult is the only channel through which a synchronization reports failure.
type SyncResult struct {
	RunID      string        `json:"run_id"`
	Success    bool          `json:"success"`
	TotalCount int           `json:"total_count"`
	Summary    string        `json:"summary"`
	Stages     []StageResult `json:"stages"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// StatusSummary counts complete and pending comparison rows.
type StatusSummary struct {
	Completed int  `json:"completed"`
	Pending   int  `json:"pending"`
	Total     int  `json:"total"`
	Offline   bool `json:"offline"`
}

// RowStats is the persisted row statistics snapshot.
type RowStats struct {
	Total       int       `json:"total"`
	Completed   int       `json:"completed"`
	Pending     int       `json:"pending"`
	ResultsRows int       `json:"results_rows"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SubmitResult reports a pending-item submission.
type SubmitResult struct {
	Sent   int      `json:"sent"`
	Errors []string `json:"errors"`
}
