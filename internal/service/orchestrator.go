package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"stockcount-api/internal/audit"
	"stockcount-api/internal/config"
	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
	"stockcount-api/pkg/uid"

	"golang.org/x/sync/singleflight"
)

// Orchestrator refreshes every store from the remote tables: Lookup, Comparison, Results, then Users.
// Stages run sequentially and a failing stage never stops the ones after it.
type Orchestrator struct {
	client   remote.Client
	stores   *Stores
	resolver *Resolver
	sink     audit.Sink
	cfg      config.SyncConfig
	group    singleflight.Group
}

// NewOrchestrator creates a synchronization orchestrator.
func NewOrchestrator(client remote.Client, stores *Stores, resolver *Resolver, sink audit.Sink, cfg config.SyncConfig) *Orchestrator {
	if sink == nil {
		sink = audit.Nop{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1000
	}
	if cfg.UsersLimit <= 0 {
		cfg.UsersLimit = 1000
	}
	return &Orchestrator{
		client:   client,
		stores:   stores,
		resolver: resolver,
		sink:     sink,
		cfg:      cfg,
	}
}

// Sync runs a full synchronization. Concurrent callers share the run already in flight.
// The run is detached from ctx cancellation: a stage always ends on its own success or failure,
// bounded only by the per-call remote timeouts.
func (o *Orchestrator) Sync(ctx context.Context) model.SyncResult {
	runCtx := context.WithoutCancel(ctx)
	v, _, shared := o.group.Do("sync", func() (interface{}, error) {
		return o.run(runCtx), nil
	})
	result := v.(model.SyncResult)
	if shared {
		log.Printf("[SyncOrchestrator] Joined in-flight run %s", result.RunID)
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context) model.SyncResult {
	result := model.SyncResult{
		RunID:     uid.NewRunID(),
		StartedAt: time.Now(),
	}
	log.Printf("[SyncOrchestrator] Run %s started", result.RunID)

	result.Stages = append(result.Stages, o.syncLookup(ctx))
	result.Stages = append(result.Stages, o.syncComparison(ctx))
	result.Stages = append(result.Stages, o.syncResults(ctx))
	result.Stages = append(result.Stages, o.syncUsers(ctx))

	result.Success = true
	var failed []string
	counts := make(map[model.Table]int, len(result.Stages))
	for _, st := range result.Stages {
		result.TotalCount += st.Count
		counts[st.Table] = st.Count
		if st.Failed {
			result.Success = false
			failed = append(failed, string(st.Table))
			o.sink.Record(model.AuditError, "sync", fmt.Sprintf("%s stage failed", st.Table), st.Error)
		}
	}

	result.Summary = fmt.Sprintf("%d records synchronized (comparison: %d, results: %d, lookup: %d, users: %d)",
		result.TotalCount,
		counts[model.TableComparison], counts[model.TableResults], counts[model.TableLookup], counts[model.TableUsers])
	if len(failed) > 0 {
		result.Summary += "; failed: " + strings.Join(failed, ", ")
	}
	result.Duration = time.Since(result.StartedAt)

	level := model.AuditSuccess
	if !result.Success {
		level = model.AuditWarning
	}
	o.sink.Record(level, "sync", result.Summary, result.RunID)
	log.Printf("[SyncOrchestrator] Run %s finished in %v: %s", result.RunID, result.Duration, result.Summary)
	return result
}

func stageFrom[V any](table model.Table, res fetchResult[V]) model.StageResult {
	st := model.StageResult{
		Table:   table,
		Count:   len(res.Records),
		Pages:   res.Pages,
		Skipped: res.Skipped,
	}
	if res.Err != nil {
		st.Failed = true
		st.Error = res.Err.Error()
	}
	return st
}

// keepPrevious reports whether a failed stage fetched nothing, in which case the existing cache stays.
func keepPrevious(st model.StageResult) bool {
	if st.Failed && st.Count == 0 {
		log.Printf("[SyncOrchestrator] %s stage failed with no rows, keeping previous cache: %s", st.Table, st.Error)
		return true
	}
	return false
}

func (o *Orchestrator) syncLookup(ctx context.Context) model.StageResult {
	res := fetchAll(ctx, o.client, model.TableLookup, o.cfg.PageSize, o.cfg.MaxPages, nil, remote.DecodeProduct)
	st := stageFrom(model.TableLookup, res)
	if !keepPrevious(st) {
		o.stores.Lookup.UpsertAll(ctx, res.Records)
	}
	log.Printf("[SyncOrchestrator] lookup: %d rows in %d pages (skipped %d)", st.Count, st.Pages, st.Skipped)
	return st
}

func (o *Orchestrator) syncComparison(ctx context.Context) model.StageResult {
	res := fetchAll(ctx, o.client, model.TableComparison, o.cfg.PageSize, o.cfg.MaxPages, nil, remote.DecodeInventory)
	st := stageFrom(model.TableComparison, res)
	if !keepPrevious(st) {
		o.stores.Comparison.UpsertAll(ctx, res.Records)
	}
	log.Printf("[SyncOrchestrator] comparison: %d rows in %d pages (skipped %d)", st.Count, st.Pages, st.Skipped)
	return st
}

func (o *Orchestrator) syncResults(ctx context.Context) model.StageResult {
	res := fetchAll(ctx, o.client, model.TableResults, o.cfg.PageSize, o.cfg.MaxPages, nil, remote.DecodeInventory)
	st := stageFrom(model.TableResults, res)
	if keepPrevious(st) {
		return st
	}

	attachNames(res.Records, o.resolver.ResolveBatch(ctx, productCodes(res.Records)))
	o.stores.Results.UpsertAll(ctx, res.Records)

	rows := len(res.Records)
	o.stores.updateRowStats(ctx, func(s *model.RowStats) {
		s.ResultsRows = rows
		s.UpdatedAt = time.Now()
	})
	log.Printf("[SyncOrchestrator] results: %d rows in %d pages (skipped %d)", st.Count, st.Pages, st.Skipped)
	return st
}

func (o *Orchestrator) syncUsers(ctx context.Context) model.StageResult {
	st := model.StageResult{Table: model.TableUsers}

	page, err := o.client.List(ctx, model.TableUsers, remote.ListOptions{Limit: o.cfg.UsersLimit})
	if err != nil {
		st.Failed = true
		st.Error = err.Error()
		keepPrevious(st)
		return st
	}
	st.Pages = 1

	users := decodeRows(page.Rows, remote.DecodeUser, &st.Skipped)
	st.Count = len(users)
	o.stores.Users.UpsertAll(ctx, users)
	log.Printf("[SyncOrchestrator] users: %d rows (skipped %d)", st.Count, st.Skipped)
	return st
}

func decodeRows[V any](rows []json.RawMessage, decode func(json.RawMessage) (V, error), skipped *int) []V {
	out := make([]V, 0, len(rows))
	for _, raw := range rows {
		v, err := decode(raw)
		if err != nil {
			*skipped++
			continue
		}
		out = append(out, v)
	}
	return out
}

func productCodes(records []model.InventoryRecord) []int {
	codes := make([]int, 0, len(records))
	for _, r := range records {
		if r.ProductCode != nil {
			codes = append(codes, *r.ProductCode)
		}
	}
	return codes
}

// attachNames fills ProductName in place from names.
func attachNames(records []model.InventoryRecord, names map[int]string) {
	for i := range records {
		if records[i].ProductCode == nil {
			continue
		}
		if name, ok := names[*records[i].ProductCode]; ok {
			records[i].ProductName = name
		}
	}
}
