package service

import (
	"context"
	"testing"
	"time"

	"stockcount-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentActivity_Online(t *testing.T) {
	f := newFixture(t)
	f.seed(5, 3)
	now := time.Now()
	f.client.AddRow(model.TableResults, resultRow(1, 100, 1, now.Add(-48*time.Hour)))
	f.client.AddRow(model.TableResults, resultRow(2, 101, 1, now.Add(-10*time.Minute)))

	report := f.svc.RecentActivity(context.Background(), now, 24*time.Hour)

	assert.False(t, report.Offline)
	require.Len(t, report.Records, 4)
	assert.Equal(t, "2", report.Records[0].BarcodeID, "newest first")
	for _, r := range report.Records {
		assert.NotEmpty(t, r.ProductName)
		assert.NotEqual(t, "1", r.BarcodeID)
	}
}

func TestRecentActivity_FallsBackToPendingItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	_, err := f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "11", CountedQty: model.Int(1), CapturedAt: now.Add(-30 * time.Minute)})
	require.NoError(t, err)
	_, err = f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "12", CapturedAt: now.Add(-72 * time.Hour)})
	require.NoError(t, err)
	f.client.FailAll()

	report := f.svc.RecentActivity(ctx, now, 24*time.Hour)

	assert.True(t, report.Offline)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "11", report.Records[0].BarcodeID)
}

func TestRecentActivity_EmptyWindow(t *testing.T) {
	f := newFixture(t)

	report := f.svc.RecentActivity(context.Background(), time.Now(), time.Hour)

	assert.True(t, report.Offline)
	assert.NotNil(t, report.Records)
	assert.Empty(t, report.Records)
	assert.Empty(t, report.Error)
}
