package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"stockcount-api/internal/model"
)

// ActivityReport lists Results rows recorded within a time window.
type ActivityReport struct {
	Records []model.InventoryRecord `json:"records"`
	Offline bool                    `json:"offline"`
	Error   string                  `json:"error,omitempty"`
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
}

func withinWindow(r model.InventoryRecord, from, to time.Time) bool {
	at, ok := r.RecordedAt()
	if !ok {
		return false
	}
	return !at.Before(from) && !at.After(to)
}

// RecentActivity returns Results rows whose timestamp lies in [now-window, now].
// When the remote is unreachable or has nothing in the window, local pending items are reported instead.
func (s *InventoryService) RecentActivity(ctx context.Context, now time.Time, window time.Duration) ActivityReport {
	report := ActivityReport{From: now.Add(-window), To: now}

	rows, err := s.fetchTable(ctx, model.TableResults)
	if err != nil {
		log.Printf("[InventoryService] Recent activity online fetch failed, using local items: %v", err)
	}
	for _, r := range rows {
		if withinWindow(r, report.From, report.To) {
			report.Records = append(report.Records, r)
		}
	}

	if len(report.Records) == 0 {
		report.Offline = true
		items, err := s.pending.GetAll(ctx)
		if err != nil {
			report.Error = fmt.Sprintf("failed to read local items: %v", err)
			report.Records = []model.InventoryRecord{}
			return report
		}
		for _, item := range items {
			r := item.ToRecord()
			if withinWindow(r, report.From, report.To) {
				report.Records = append(report.Records, r)
			}
		}
	}

	if report.Records == nil {
		report.Records = []model.InventoryRecord{}
	}
	attachNames(report.Records, s.resolver.ResolveBatch(ctx, productCodes(report.Records)))

	// Newest first.
	sort.SliceStable(report.Records, func(i, j int) bool {
		a, _ := report.Records[i].RecordedAt()
		b, _ := report.Records[j].RecordedAt()
		return a.After(b)
	})
	return report
}
