package model

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the text layout of the DATA field on the Results table.
const TimestampLayout = "02/01/2006 15:04:05"

// Status labels written by the reconciler.
const (
	StatusComplete = "Complete"
	StatusPending  = "Pending"
)

// InventoryRecord represents one row of the Comparison or Results table.
type InventoryRecord struct {
	RowID        *int   `json:"row_id,omitempty"`
	BarcodeID    string `json:"barcode_id"`
	Round        *int   `json:"round,omitempty"`
	Branch       *int   `json:"branch,omitempty"`
	ProductCode  *int   `json:"product_code,omitempty"`
	ExpectedQty  *int   `json:"expected_qty,omitempty"`
	CountedQty   *int   `json:"counted_qty,omitempty"`
	OperatorCode *int   `json:"operator_code,omitempty"`
	Status       string `json:"status,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
}

// Key returns the numeric barcode used to index the record.
func (r InventoryRecord) Key() (int64, bool) {
	return ParseBarcode(r.BarcodeID)
}

// RecordedAt parses the DATA timestamp in the local time zone.
func (r InventoryRecord) RecordedAt() (time.Time, bool) {
	return ParseTimestamp(r.Timestamp)
}

// ScannedItem is a locally captured record that has not been submitted yet.
type ScannedItem struct {
	BarcodeID    string    `json:"barcode_id" validate:"required,numeric,max=19"`
	Round        *int      `json:"round,omitempty" validate:"omitempty,gte=0"`
	Branch       *int      `json:"branch,omitempty" validate:"omitempty,gte=0"`
	ProductCode  *int      `json:"product_code,omitempty" validate:"omitempty,gte=0"`
	ExpectedQty  *int      `json:"expected_qty,omitempty" validate:"omitempty,gte=0"`
	CountedQty   *int      `json:"counted_qty,omitempty" validate:"omitempty,gte=0"`
	OperatorCode *int      `json:"operator_code,omitempty"`
	Status       string    `json:"status,omitempty"`
	ProductName  string    `json:"product_name,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`
}

// Key returns the trimmed barcode identifying the item in the pending store.
func (s ScannedItem) Key() string {
	return strings.TrimSpace(s.BarcodeID)
}

// ToRecord converts a pending item into the record shape used by reports.
func (s ScannedItem) ToRecord() InventoryRecord {
	rec := InventoryRecord{
		BarcodeID:    s.BarcodeID,
		Round:        s.Round,
		Branch:       s.Branch,
		ProductCode:  s.ProductCode,
		ExpectedQty:  s.ExpectedQty,
		CountedQty:   s.CountedQty,
		OperatorCode: s.OperatorCode,
		Status:       s.Status,
		ProductName:  s.ProductName,
	}
	if !s.CapturedAt.IsZero() {
		rec.Timestamp = s.CapturedAt.Local().Format(TimestampLayout)
	}
	return rec
}

// ParseBarcode parses a barcode identifier as a non-negative integer.
func ParseBarcode(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// ParseTimestamp parses a DATA value. Empty or malformed values report false.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// IntValue dereferences p, returning 0 for nil.
func IntValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
