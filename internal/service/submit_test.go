package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultByBarcode(t *testing.T, f *fixture, barcode float64) map[string]any {
	t.Helper()
	for _, row := range f.client.Rows(model.TableResults) {
		if row[remote.FieldBarcode] == barcode {
			return row
		}
	}
	t.Fatalf("no result row for %v", barcode)
	return nil
}

func TestAddPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: " 7890001 ", CountedQty: model.Int(2)})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "7890001", CountedQty: model.Int(5)})
	require.NoError(t, err)
	assert.False(t, added)

	_, err = f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "abc"})
	assert.Error(t, err)

	_, err = f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "1", CountedQty: model.Int(-1)})
	assert.Error(t, err)

	items, err := f.svc.PendingItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "7890001", items[0].BarcodeID)
	assert.Equal(t, 2, model.IntValue(items[0].CountedQty))
	assert.False(t, items[0].CapturedAt.IsZero())
}

func TestSubmitPending(t *testing.T) {
	f := newFixture(t)
	f.seed(3, 0)
	ctx := context.Background()
	captured := time.Date(2026, 10, 19, 8, 30, 0, 0, time.Local)

	_, err := f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "7890001", CountedQty: model.Int(7), OperatorCode: model.Int(4), CapturedAt: captured})
	require.NoError(t, err)
	_, err = f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "7890002", CapturedAt: captured})
	require.NoError(t, err)
	_, err = f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "555", CountedQty: model.Int(1), CapturedAt: captured})
	require.NoError(t, err)

	res := f.svc.SubmitPending(ctx)

	assert.Equal(t, 2, res.Sent)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "555")

	row := resultByBarcode(t, f, 7890001)
	assert.Equal(t, float64(7), row[remote.FieldCounted])
	assert.Equal(t, float64(10), row[remote.FieldExpected])
	assert.Equal(t, float64(1), row[remote.FieldBranch])
	assert.Equal(t, float64(1), row[remote.FieldRound])
	assert.Equal(t, float64(4), row[remote.FieldOperator])
	assert.Equal(t, "19/10/2026 08:30:00", row[remote.FieldTimestamp])

	// Without a counted quantity the expected quantity is submitted.
	row = resultByBarcode(t, f, 7890002)
	assert.Equal(t, float64(10), row[remote.FieldCounted])

	items, err := f.svc.PendingItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "555", items[0].BarcodeID)
	assert.Equal(t, 1, f.sink.count(model.AuditSuccess))
}

func TestSubmitPending_UsesItemFieldsWhenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddPending(ctx, model.ScannedItem{
		BarcodeID:   "42",
		ExpectedQty: model.Int(3),
		Branch:      model.Int(2),
		Round:       model.Int(9),
	})
	require.NoError(t, err)

	res := f.svc.SubmitPending(ctx)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 0, f.client.Calls(model.TableComparison))
	row := resultByBarcode(t, f, 42)
	assert.Equal(t, float64(3), row[remote.FieldCounted])
	assert.Equal(t, float64(9), row[remote.FieldRound])
}

func TestSubmitPending_InsertFailureKeepsItems(t *testing.T) {
	f := newFixture(t)
	f.seed(2, 0)
	ctx := context.Background()
	_, err := f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: "7890000", CountedQty: model.Int(1)})
	require.NoError(t, err)
	f.client.Fail(model.TableResults, errors.New("write refused"))

	res := f.svc.SubmitPending(ctx)

	assert.Equal(t, 0, res.Sent)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "write refused")
	assert.Equal(t, 1, f.sink.count(model.AuditError))

	items, err := f.svc.PendingItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCreateFlushFunc(t *testing.T) {
	f := newFixture(t)
	f.seed(2, 0)
	ctx := context.Background()
	items := []model.ScannedItem{
		{BarcodeID: "7890000", CountedQty: model.Int(1)},
		{BarcodeID: "31337"},
	}
	for _, it := range items {
		_, err := f.svc.AddPending(ctx, it)
		require.NoError(t, err)
	}

	sent, err := f.svc.CreateFlushFunc()(ctx, items)

	assert.Equal(t, []string{"7890000"}, sent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 items failed")

	left, err := f.svc.PendingItems(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "31337", left[0].BarcodeID)
}

func TestCreateFlushFunc_SkipsItemsAlreadySubmitted(t *testing.T) {
	f := newFixture(t)
	f.seed(2, 0)
	ctx := context.Background()
	item := model.ScannedItem{BarcodeID: "7890001", CountedQty: model.Int(3)}
	_, err := f.svc.AddPending(ctx, item)
	require.NoError(t, err)

	// The buffer read the item before a manual submission sent it.
	require.Equal(t, 1, f.svc.SubmitPending(ctx).Sent)
	sent, err := f.svc.CreateFlushFunc()(ctx, []model.ScannedItem{item})

	require.NoError(t, err)
	assert.Empty(t, sent)
	assert.Len(t, f.client.Rows(model.TableResults), 1)
}

func TestSubmitPending_ConcurrentCallsInsertOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(3, 0)
	ctx := context.Background()
	for _, b := range []string{"7890000", "7890001", "7890002"} {
		_, err := f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: b, CountedQty: model.Int(1)})
		require.NoError(t, err)
	}
	f.client.SetInsertDelay(20 * time.Millisecond)

	var wg sync.WaitGroup
	results := make([]model.SubmitResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.SubmitPending(ctx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, results[0].Sent+results[1].Sent)
	assert.Len(t, f.client.Rows(model.TableResults), 3)
}

func TestRemoveAndClearPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, b := range []string{"1", "2", "3"} {
		_, err := f.svc.AddPending(ctx, model.ScannedItem{BarcodeID: b})
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.RemovePending(ctx, "2"))
	items, err := f.svc.PendingItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, f.svc.ClearPending(ctx))
	items, err = f.svc.PendingItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}
