package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"stockcount-api/internal/cache"
	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
)

// AddPending validates and stores a scanned item. Reports false when the barcode is already pending.
func (s *InventoryService) AddPending(ctx context.Context, item model.ScannedItem) (bool, error) {
	item.BarcodeID = item.Key()
	if err := s.validate.Struct(item); err != nil {
		return false, err
	}
	if item.CapturedAt.IsZero() {
		item.CapturedAt = time.Now()
	}
	return s.pending.Add(ctx, item)
}

// PendingItems returns items awaiting submission.
func (s *InventoryService) PendingItems(ctx context.Context) ([]model.ScannedItem, error) {
	return s.pending.GetAll(ctx)
}

// RemovePending drops one pending item.
func (s *InventoryService) RemovePending(ctx context.Context, barcode string) error {
	return s.pending.Remove(ctx, barcode)
}

// ClearPending drops every pending item.
func (s *InventoryService) ClearPending(ctx context.Context) error {
	return s.pending.Clear(ctx)
}

// SubmitPending inserts every pending item into the Results table.
// Submitted items leave the pending store; failures are listed per item and the rest continue.
func (s *InventoryService) SubmitPending(ctx context.Context) model.SubmitResult {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	items, err := s.pending.GetAll(ctx)
	if err != nil {
		return model.SubmitResult{Errors: []string{fmt.Sprintf("failed to read pending items: %v", err)}}
	}

	sent, errs := s.submitAndRemove(ctx, items)
	if errs == nil {
		errs = []string{}
	}
	return model.SubmitResult{Sent: len(sent), Errors: errs}
}

// CreateFlushFunc creates a flush function for the Redis pending buffer.
// It shares the submission lock with SubmitPending and skips items another submission already sent.
func (s *InventoryService) CreateFlushFunc() cache.FlushFunc {
	return func(ctx context.Context, items []model.ScannedItem) ([]string, error) {
		s.submitMu.Lock()
		defer s.submitMu.Unlock()

		current, err := s.pending.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read pending items: %w", err)
		}
		still := make(map[string]struct{}, len(current))
		for _, it := range current {
			still[it.Key()] = struct{}{}
		}
		batch := make([]model.ScannedItem, 0, len(items))
		for _, it := range items {
			if _, ok := still[it.Key()]; ok {
				batch = append(batch, it)
			}
		}

		sent, errs := s.submitAndRemove(ctx, batch)
		if len(errs) > 0 {
			return sent, fmt.Errorf("%d items failed: %s", len(errs), strings.Join(errs, "; "))
		}
		return sent, nil
	}
}

// submitAndRemove submits items and drops the accepted ones from the pending store.
// Callers hold submitMu.
func (s *InventoryService) submitAndRemove(ctx context.Context, items []model.ScannedItem) ([]string, []string) {
	sent, errs := s.submitItems(ctx, items)
	for _, key := range sent {
		if err := s.pending.Remove(ctx, key); err != nil {
			log.Printf("[InventoryService] Submitted %s but failed to remove it from pending: %v", key, err)
		}
	}
	if len(sent) > 0 {
		s.sink.Record(model.AuditSuccess, "submit", fmt.Sprintf("%d items submitted", len(sent)), "")
	}
	return sent, errs
}

// submitItems inserts items one by one and returns the keys that were accepted plus per-item errors.
func (s *InventoryService) submitItems(ctx context.Context, items []model.ScannedItem) ([]string, []string) {
	var sent, errs []string

	for _, item := range items {
		key := item.Key()
		if key == "" {
			errs = append(errs, "blank barcode ignored")
			continue
		}
		item.BarcodeID = key

		if err := s.validate.Struct(item); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			continue
		}

		rec, err := s.prepareSubmission(ctx, item)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			continue
		}

		fields, err := remote.InventoryFields(rec)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			continue
		}

		if err := s.client.Insert(ctx, model.TableResults, fields); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			s.sink.Record(model.AuditError, "submit", fmt.Sprintf("failed to submit %s", key), err.Error())
			continue
		}

		log.Printf("[InventoryService] Item %s submitted", key)
		sent = append(sent, key)
	}

	return sent, errs
}

// prepareSubmission completes an item from the Comparison table when the item lacks expected
// quantity, branch or round. Branch and round are required.
func (s *InventoryService) prepareSubmission(ctx context.Context, item model.ScannedItem) (model.InventoryRecord, error) {
	var ref model.InventoryRecord
	if item.ExpectedQty != nil && item.Branch != nil && item.Round != nil {
		ref = model.InventoryRecord{
			ExpectedQty: item.ExpectedQty,
			Branch:      item.Branch,
			Round:       item.Round,
			ProductCode: item.ProductCode,
		}
	} else if res := s.LookupByBarcode(ctx, item.BarcodeID, false); res.Found {
		ref = res.Value
	}

	rec := model.InventoryRecord{
		BarcodeID:    item.BarcodeID,
		ExpectedQty:  firstInt(ref.ExpectedQty, item.ExpectedQty),
		CountedQty:   firstInt(item.CountedQty, ref.ExpectedQty, item.ExpectedQty),
		Branch:       firstInt(ref.Branch, item.Branch),
		Round:        firstInt(ref.Round, item.Round),
		ProductCode:  firstInt(item.ProductCode, ref.ProductCode),
		OperatorCode: item.OperatorCode,
	}

	if rec.Branch == nil || rec.Round == nil {
		return rec, fmt.Errorf("missing required branch or round")
	}

	captured := item.CapturedAt
	if captured.IsZero() {
		captured = time.Now()
	}
	rec.Timestamp = captured.Local().Format(model.TimestampLayout)
	return rec, nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
