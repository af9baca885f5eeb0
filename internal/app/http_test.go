package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
	"stockcount-api/internal/remote/remotetest"
	"stockcount-api/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiFixture struct {
	t      *testing.T
	client *remotetest.Client
	app    *App
	srv    *httptest.Server
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	cfg := testConfig(t)
	cfg.Storage.Type = "memory"
	cfg.App.APIKeys = []string{"test-key"}

	client := remotetest.New()
	for i := 0; i < 4; i++ {
		client.AddRow(model.TableComparison, map[string]any{
			remote.FieldBarcode:     1000 + i,
			remote.FieldProductCode: 7,
			remote.FieldRound:       3,
			remote.FieldBranch:      1,
			remote.FieldExpected:    5,
		})
	}
	client.AddRow(model.TableResults, map[string]any{
		remote.FieldBarcode:   1000,
		remote.FieldCounted:   5,
		remote.FieldTimestamp: time.Now().Add(-time.Hour).Format(model.TimestampLayout),
	})
	client.AddRow(model.TableLookup, map[string]any{remote.FieldProductCode: 7, remote.FieldProductName: "Hinge"})
	client.AddRow(model.TableUsers, map[string]any{remote.FieldUsername: "ana", "password": "pw"})

	a, err := New(context.Background(), cfg, Options{Remote: client})
	require.NoError(t, err)
	srv := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		srv.Close()
		a.Close()
	})
	return &apiFixture{t: t, client: client, app: a, srv: srv}
}

func (f *apiFixture) do(method, path string, body interface{}) (*http.Response, envelope) {
	f.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	require.NoError(f.t, err)
	req.Header.Set("X-API-Key", "test-key")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func TestAPI_AuthRequired(t *testing.T) {
	f := newAPI(t)

	resp, err := http.Get(f.srv.URL + "/api/v1/status/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(f.srv.URL + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_SyncAndRead(t *testing.T) {
	f := newAPI(t)

	resp, env := f.do(http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result model.SyncResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, 7, result.TotalCount)

	_, env = f.do(http.MethodGet, "/api/v1/status/summary", nil)
	var summary model.StatusSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, model.StatusSummary{Completed: 1, Pending: 3, Total: 4}, summary)

	f.client.FailAll()

	resp, env = f.do(http.MethodGet, "/api/v1/records/1002", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cache", resp.Header.Get("X-Served-From"))
	var lookup struct {
		Value model.InventoryRecord `json:"value"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &lookup))
	assert.Equal(t, "Hinge", lookup.Value.ProductName)

	resp, env = f.do(http.MethodGet, "/api/v1/records/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RECORD_NOT_FOUND", env.Error.Code)

	_, env = f.do(http.MethodGet, "/api/v1/rounds", nil)
	var rounds struct {
		Value []int `json:"value"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rounds))
	assert.Equal(t, []int{3}, rounds.Value)
}

func TestAPI_StatusFilter(t *testing.T) {
	f := newAPI(t)
	f.do(http.MethodPost, "/api/v1/sync", nil)

	barcodes := func(env envelope) []string {
		var res struct {
			Value []model.InventoryRecord `json:"value"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		out := make([]string, 0, len(res.Value))
		for _, r := range res.Value {
			out = append(out, r.BarcodeID)
		}
		return out
	}

	_, env := f.do(http.MethodGet, "/api/v1/status/rows?status=complete", nil)
	assert.Equal(t, []string{"1000"}, barcodes(env))

	_, env = f.do(http.MethodGet, "/api/v1/status/rows?status=pending", nil)
	assert.Equal(t, []string{"1001", "1002", "1003"}, barcodes(env))

	_, env = f.do(http.MethodGet, "/api/v1/results?status=complete", nil)
	assert.Equal(t, []string{"1000"}, barcodes(env))

	_, env = f.do(http.MethodGet, "/api/v1/results?status=pending", nil)
	assert.Empty(t, barcodes(env))

	resp, env := f.do(http.MethodGet, "/api/v1/status/rows?status=done", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestAPI_Cache(t *testing.T) {
	f := newAPI(t)
	f.do(http.MethodPost, "/api/v1/sync", nil)

	_, env := f.do(http.MethodGet, "/api/v1/cache/users", nil)
	assert.NotContains(t, string(env.Data), "pw")

	_, env = f.do(http.MethodGet, "/api/v1/cache/comparison/meta", nil)
	assert.Contains(t, string(env.Data), `"size":4`)

	resp, _ := f.do(http.MethodDelete, "/api/v1/cache/comparison", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, f.app.Stores.Comparison.Size())

	resp, env = f.do(http.MethodGet, "/api/v1/cache/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_TABLE", env.Error.Code)
}

func TestAPI_PendingFlow(t *testing.T) {
	f := newAPI(t)

	resp, _ := f.do(http.MethodPost, "/api/v1/pending", map[string]any{"barcode_id": "1001", "counted_qty": 4})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := f.do(http.MethodPost, "/api/v1/pending", map[string]any{"barcode_id": "1001"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_PENDING", env.Error.Code)

	resp, env = f.do(http.MethodPost, "/api/v1/pending", map[string]any{"barcode_id": "x1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	_, env = f.do(http.MethodPost, "/api/v1/pending/submit", nil)
	var submit model.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &submit))
	assert.Equal(t, 1, submit.Sent)
	assert.Empty(t, submit.Errors)

	_, env = f.do(http.MethodGet, "/api/v1/pending", nil)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestAPI_NamesValidation(t *testing.T) {
	f := newAPI(t)

	_, env := f.do(http.MethodPost, "/api/v1/products/names", map[string]any{"codes": []int{7, 8}})
	assert.JSONEq(t, `{"7":"Hinge"}`, string(env.Data))

	resp, _ := f.do(http.MethodPost, "/api/v1/products/names", map[string]any{"codes": []int{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UsersVerify(t *testing.T) {
	f := newAPI(t)
	f.do(http.MethodPost, "/api/v1/sync", nil)

	resp, _ := f.do(http.MethodPost, "/api/v1/users/verify", map[string]string{"username": "ana", "password": "pw"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(http.MethodPost, "/api/v1/users/verify", map[string]string{"username": "ana", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Workbooks(t *testing.T) {
	f := newAPI(t)

	for _, path := range []string{"/api/v1/status/rows.xlsx", "/api/v1/reports/recent.xlsx"} {
		resp, _ := f.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, report.ContentType, resp.Header.Get("Content-Type"), path)
	}
}

func TestAPI_AuditAndAdmin(t *testing.T) {
	f := newAPI(t)
	f.client.FailAll()
	f.do(http.MethodPost, "/api/v1/sync", nil)

	require.Eventually(t, func() bool {
		_, env := f.do(http.MethodGet, "/api/v1/audit", nil)
		var entries []model.AuditEntry
		return json.Unmarshal(env.Data, &entries) == nil && len(entries) >= 5
	}, 2*time.Second, 20*time.Millisecond)

	resp, env := f.do(http.MethodGet, "/api/v1/admin/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"storage_type":"memory"`)

	resp, _ = f.do(http.MethodGet, "/api/v1/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
