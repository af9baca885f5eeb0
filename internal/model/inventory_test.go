package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBarcode(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"7891234567890", 7891234567890, true},
		{"  42 ", 42, true},
		{"0", 0, true},
		{"", 0, false},
		{"-5", 0, false},
		{"12ab", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseBarcode(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("19/10/2026 08:30:00")
	assert.True(t, ok)
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.October, ts.Month())
	assert.Equal(t, 8, ts.Hour())

	_, ok = ParseTimestamp("2026-10-19")
	assert.False(t, ok)
}

func TestScannedItemToRecord(t *testing.T) {
	captured := time.Date(2026, 10, 19, 9, 15, 0, 0, time.Local)
	item := ScannedItem{BarcodeID: "100", Branch: Int(1), CapturedAt: captured}

	rec := item.ToRecord()
	assert.Equal(t, "100", rec.BarcodeID)
	assert.Equal(t, 1, IntValue(rec.Branch))
	assert.Equal(t, "19/10/2026 09:15:00", rec.Timestamp)
	assert.Nil(t, rec.RowID)
}

func TestParseTable(t *testing.T) {
	tbl, ok := ParseTable("results")
	assert.True(t, ok)
	assert.Equal(t, TableResults, tbl)

	_, ok = ParseTable("orders")
	assert.False(t, ok)
}
