package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"stockcount-api/internal/audit"
	"stockcount-api/internal/cache"
	"stockcount-api/internal/config"
	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"

	"github.com/go-playground/validator/v10"
)

// InventoryService is the entry point for callers: synchronization, reconciled reads with offline
// fallback, product name resolution, and pending-item submission. Its methods report failure
// through their results rather than errors, except for local storage operations.
type InventoryService struct {
	client       remote.Client
	stores       *Stores
	resolver     *Resolver
	orchestrator *Orchestrator
	pending      cache.PendingStore
	sink         audit.Sink
	validate     *validator.Validate
	cfg          config.SyncConfig

	// submitMu serializes submissions so an item is never inserted twice.
	submitMu sync.Mutex
}

// NewInventoryService wires the service. sink may be nil.
func NewInventoryService(
	client remote.Client,
	stores *Stores,
	resolver *Resolver,
	pending cache.PendingStore,
	sink audit.Sink,
	cfg config.SyncConfig,
) *InventoryService {
	if sink == nil {
		sink = audit.Nop{}
	}
	orchestrator := NewOrchestrator(client, stores, resolver, sink, cfg)
	return &InventoryService{
		client:       client,
		stores:       stores,
		resolver:     resolver,
		orchestrator: orchestrator,
		pending:      pending,
		sink:         sink,
		validate:     validator.New(),
		cfg:          orchestrator.cfg,
	}
}

// CacheMeta describes one table's cache.
type CacheMeta struct {
	Table    model.Table `json:"table"`
	Size     int         `json:"size"`
	Empty    bool        `json:"empty"`
	LastSync *time.Time  `json:"last_sync,omitempty"`
}

// Sync refreshes every cache from the remote tables.
func (s *InventoryService) Sync(ctx context.Context) model.SyncResult {
	return s.orchestrator.Sync(ctx)
}

func (s *InventoryService) fetchTable(ctx context.Context, table model.Table) ([]model.InventoryRecord, error) {
	res := fetchAll(ctx, s.client, table, s.cfg.PageSize, s.cfg.MaxPages, nil, remote.DecodeInventory)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Records, nil
}

func (s *InventoryService) comparisonRows(ctx context.Context, forceOnline bool) ReadResult[[]model.InventoryRecord] {
	return Fallback(forceOnline, s.stores.Comparison.GetAll(), !s.stores.Comparison.IsEmpty(),
		func() ([]model.InventoryRecord, bool, error) {
			rows, err := s.fetchTable(ctx, model.TableComparison)
			if err != nil {
				log.Printf("[InventoryService] Comparison fetch failed, using cache: %v", err)
			}
			return rows, err == nil, err
		})
}

func (s *InventoryService) resultsRows(ctx context.Context, forceOnline bool) ReadResult[[]model.InventoryRecord] {
	return Fallback(forceOnline, s.stores.Results.GetAll(), !s.stores.Results.IsEmpty(),
		func() ([]model.InventoryRecord, bool, error) {
			rows, err := s.fetchTable(ctx, model.TableResults)
			if err != nil {
				log.Printf("[InventoryService] Results fetch failed, using cache: %v", err)
			}
			return rows, err == nil, err
		})
}

// StatusSummary counts completed and pending Comparison rows and saves the row statistics snapshot.
func (s *InventoryService) StatusSummary(ctx context.Context, forceOnline bool) model.StatusSummary {
	rows := s.comparisonRows(ctx, forceOnline)
	results := s.resultsRows(ctx, forceOnline)
	done := CompletedKeySet(results.Value)

	resultsRowCount := 0
	if results.Source == SourceRemote {
		resultsRowCount = len(results.Value)
	} else if stats, ok := s.stores.RowStats(ctx); ok {
		resultsRowCount = stats.ResultsRows
	}

	summary := Summarize(rows.Value, done, resultsRowCount)
	summary.Offline = rows.Offline || results.Offline

	s.stores.updateRowStats(ctx, func(st *model.RowStats) {
		st.Total = summary.Total
		st.Completed = summary.Completed
		st.Pending = summary.Pending
		if resultsRowCount > 0 {
			st.ResultsRows = resultsRowCount
		}
		st.UpdatedAt = time.Now()
	})
	return summary
}

// RowStats returns the last saved row statistics.
func (s *InventoryService) RowStats(ctx context.Context) (model.RowStats, bool) {
	return s.stores.RowStats(ctx)
}

func (s *InventoryService) fetchByKey(ctx context.Context, table model.Table, id string) (model.InventoryRecord, bool, error) {
	raw, err := s.client.GetByKey(ctx, table, id)
	if err != nil {
		if remote.IsNotFound(err) {
			return model.InventoryRecord{}, false, nil
		}
		log.Printf("[InventoryService] Remote lookup of %s in %s failed: %v", id, table, err)
		return model.InventoryRecord{}, false, err
	}
	rec, err := remote.DecodeInventory(raw)
	if err != nil {
		log.Printf("[InventoryService] Undecodable %s row for %s: %v", table, id, err)
		return model.InventoryRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *InventoryService) lookup(ctx context.Context, table model.Table, store *cache.Store[int64, model.InventoryRecord], id string, forceOnline bool) ReadResult[model.InventoryRecord] {
	key, ok := model.ParseBarcode(id)
	if !ok {
		return ReadResult[model.InventoryRecord]{Source: SourceCache}
	}
	cached, hit := store.Get(key)

	res := Fallback(forceOnline, cached, hit, func() (model.InventoryRecord, bool, error) {
		return s.fetchByKey(ctx, table, fmt.Sprint(key))
	})
	if res.Found && res.Value.ProductName == "" && res.Value.ProductCode != nil {
		if name, ok := s.resolver.ResolveOne(ctx, *res.Value.ProductCode); ok {
			res.Value.ProductName = name
		}
	}
	return res
}

// LookupByBarcode returns the Comparison record for a barcode with its product name.
func (s *InventoryService) LookupByBarcode(ctx context.Context, id string, forceOnline bool) ReadResult[model.InventoryRecord] {
	return s.lookup(ctx, model.TableComparison, s.stores.Comparison, id, forceOnline)
}

// LookupResult returns the Results record for a barcode.
func (s *InventoryService) LookupResult(ctx context.Context, id string, forceOnline bool) ReadResult[model.InventoryRecord] {
	return s.lookup(ctx, model.TableResults, s.stores.Results, id, forceOnline)
}

// ResolveProductNames maps product codes to names; unresolved codes are omitted.
func (s *InventoryService) ResolveProductNames(ctx context.Context, codes []int) map[int]string {
	return s.resolver.ResolveBatch(ctx, codes)
}

// sortRecords orders records by numeric barcode; unkeyable records go last.
func sortRecords(records []model.InventoryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, okA := records[i].Key()
		b, okB := records[j].Key()
		if okA != okB {
			return okA
		}
		return a < b
	})
}

// ComparisonWithStatus returns every Comparison row reconciled against Results, with product names.
func (s *InventoryService) ComparisonWithStatus(ctx context.Context, forceOnline bool) ReadResult[[]model.InventoryRecord] {
	rows := s.comparisonRows(ctx, forceOnline)
	results := s.resultsRows(ctx, forceOnline)

	reconciled := Reconcile(rows.Value, CompletedKeySet(results.Value))
	attachNames(reconciled, s.resolver.ResolveBatch(ctx, productCodes(reconciled)))
	sortRecords(reconciled)

	return ReadResult[[]model.InventoryRecord]{
		Value:   reconciled,
		Found:   rows.Found,
		Offline: rows.Offline || results.Offline,
		Source:  rows.Source,
	}
}

// AllResults returns every Results row. A successful online read replaces the Results cache.
func (s *InventoryService) AllResults(ctx context.Context, forceOnline bool) ReadResult[[]model.InventoryRecord] {
	res := s.resultsRows(ctx, forceOnline)
	if res.Source == SourceRemote {
		attachNames(res.Value, s.resolver.ResolveBatch(ctx, productCodes(res.Value)))
		s.stores.Results.UpsertAll(ctx, res.Value)
		rows := len(res.Value)
		s.stores.updateRowStats(ctx, func(st *model.RowStats) {
			st.ResultsRows = rows
			st.UpdatedAt = time.Now()
		})
	}
	sortRecords(res.Value)
	return res
}

// InventoryRounds returns the distinct round numbers of the Comparison table in ascending order.
func (s *InventoryService) InventoryRounds(ctx context.Context) ReadResult[[]int] {
	rows := s.comparisonRows(ctx, false)

	seen := make(map[int]struct{})
	rounds := make([]int, 0)
	for _, r := range rows.Value {
		if r.Round == nil {
			continue
		}
		if _, dup := seen[*r.Round]; dup {
			continue
		}
		seen[*r.Round] = struct{}{}
		rounds = append(rounds, *r.Round)
	}
	sort.Ints(rounds)

	return ReadResult[[]int]{Value: rounds, Found: len(rounds) > 0, Offline: rows.Offline, Source: rows.Source}
}

// GetAllCached returns the cached records of the Comparison or Results table.
func (s *InventoryService) GetAllCached(table model.Table) []model.InventoryRecord {
	var out []model.InventoryRecord
	switch table {
	case model.TableComparison:
		out = s.stores.Comparison.GetAll()
	case model.TableResults:
		out = s.stores.Results.GetAll()
	default:
		return []model.InventoryRecord{}
	}
	sortRecords(out)
	return out
}

// CachedProducts returns the cached Lookup records.
func (s *InventoryService) CachedProducts() []model.ProductLookupRecord {
	out := s.stores.Lookup.GetAll()
	sort.Slice(out, func(i, j int) bool {
		return model.IntValue(out[i].ProductCode) < model.IntValue(out[j].ProductCode)
	})
	return out
}

// CachedUsers returns the cached Users records.
func (s *InventoryService) CachedUsers() []model.UserRecord {
	out := s.stores.Users.GetAll()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// CachedTable returns the cached records of any table as JSON-ready values.
func (s *InventoryService) CachedTable(table model.Table) interface{} {
	switch table {
	case model.TableLookup:
		return s.CachedProducts()
	case model.TableUsers:
		users := s.CachedUsers()
		for i := range users {
			users[i].Password = ""
		}
		return users
	default:
		return s.GetAllCached(table)
	}
}

// IsCacheEmpty reports whether the table's cache holds no records.
func (s *InventoryService) IsCacheEmpty(table model.Table) bool {
	return s.stores.Size(table) == 0
}

// LastSyncTimestamp returns when the table's cache was last replaced.
func (s *InventoryService) LastSyncTimestamp(table model.Table) (time.Time, bool) {
	switch table {
	case model.TableComparison:
		return s.stores.Comparison.LastSync()
	case model.TableResults:
		return s.stores.Results.LastSync()
	case model.TableLookup:
		return s.stores.Lookup.LastSync()
	case model.TableUsers:
		return s.stores.Users.LastSync()
	}
	return time.Time{}, false
}

// CacheInfo describes the table's cache.
func (s *InventoryService) CacheInfo(table model.Table) CacheMeta {
	meta := CacheMeta{
		Table: table,
		Size:  s.stores.Size(table),
	}
	meta.Empty = meta.Size == 0
	if at, ok := s.LastSyncTimestamp(table); ok {
		meta.LastSync = &at
	}
	return meta
}

// CacheOverview describes every table's cache in synchronization order.
func (s *InventoryService) CacheOverview() []CacheMeta {
	out := make([]CacheMeta, 0, len(model.Tables))
	for _, t := range model.Tables {
		out = append(out, s.CacheInfo(t))
	}
	return out
}

// ClearCache empties the table's cache and deletes its snapshot.
func (s *InventoryService) ClearCache(ctx context.Context, table model.Table) error {
	var err error
	switch table {
	case model.TableComparison:
		err = s.stores.Comparison.Clear(ctx)
	case model.TableResults:
		err = s.stores.Results.Clear(ctx)
	case model.TableLookup:
		err = s.stores.Lookup.Clear(ctx)
	case model.TableUsers:
		err = s.stores.Users.Clear(ctx)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
	if err == nil {
		s.sink.Record(model.AuditInfo, "cache", fmt.Sprintf("%s cache cleared", table), "")
	}
	return err
}

// MatchUser checks credentials against the cached Users table.
func (s *InventoryService) MatchUser(username, password string) (model.UserRecord, bool) {
	u, ok := s.stores.Users.Get(username)
	if !ok {
		return model.UserRecord{}, false
	}
	if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return model.UserRecord{}, false
	}
	u.Password = ""
	return u, true
}
