package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockcount-api/internal/config"
	"stockcount-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.RemoteConfig {
	return config.RemoteConfig{
		BaseURL:           baseURL,
		Token:             "secret",
		ComparisonTableID: "cmp",
		ResultsTableID:    "res",
		LookupTableID:     "prod",
		UsersTableID:      "usr",
		ConnectTimeout:    time.Second,
		ReadTimeout:       time.Second,
		RequestTimeout:    2 * time.Second,
	}
}

func TestHTTPClient_List(t *testing.T) {
	var gotQuery, gotToken, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("where") + "|" + r.URL.Query().Get("limit") + "|" + r.URL.Query().Get("offset")
		gotToken = r.Header.Get("xc-token")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		io.WriteString(w, `{"list":[{"id":1,"CODBARID":123,"QTPROD":"5"},{"id":2,"CODBARID":"456 "}],"pageInfo":{"isLastPage":true}}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL))
	page, err := c.List(context.Background(), model.TableComparison, ListOptions{
		Limit:  100,
		Offset: 200,
		Where:  Or(Eq(FieldProductCode, 1), Eq(FieldProductCode, 2)),
	})
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)

	assert.Equal(t, "/cmp/records", gotPath)
	assert.Equal(t, "(CODPROD,eq,1)~or(CODPROD,eq,2)|100|200", gotQuery)
	assert.Equal(t, "secret", gotToken)

	rec, err := DecodeInventory(page.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, "123", rec.BarcodeID)
	assert.Equal(t, 5, model.IntValue(rec.ExpectedQty))
	assert.Equal(t, 1, model.IntValue(rec.RowID))

	rec, err = DecodeInventory(page.Rows[1])
	require.NoError(t, err)
	assert.Equal(t, "456", rec.BarcodeID)
}

func TestHTTPClient_Errors(t *testing.T) {
	t.Run("non-2xx carries message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"msg":"invalid where"}`)
		}))
		defer srv.Close()

		_, err := NewHTTPClient(testConfig(srv.URL)).List(context.Background(), model.TableResults, ListOptions{Limit: 1})
		require.Error(t, err)
		assert.Equal(t, KindProtocol, KindOf(err))
		assert.Contains(t, err.Error(), "invalid where")
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("non-json body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, "<html>login</html>")
		}))
		defer srv.Close()

		_, err := NewHTTPClient(testConfig(srv.URL)).List(context.Background(), model.TableResults, ListOptions{Limit: 1})
		assert.Equal(t, KindProtocol, KindOf(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"list":`)
		}))
		defer srv.Close()

		_, err := NewHTTPClient(testConfig(srv.URL)).List(context.Background(), model.TableResults, ListOptions{Limit: 1})
		assert.Equal(t, KindData, KindOf(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewHTTPClient(testConfig(url)).List(context.Background(), model.TableResults, ListOptions{Limit: 1})
		assert.Equal(t, KindTransport, KindOf(err))
	})
}

func TestHTTPClient_GetByKeyNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "(CODBARID,eq,42)", r.URL.Query().Get("where"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"list":[]}`)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(testConfig(srv.URL)).GetByKey(context.Background(), model.TableResults, " 42 ")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestHTTPClient_InsertSendsNumericBarcode(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"Id":10}`)
	}))
	defer srv.Close()

	fields, err := InventoryFields(model.InventoryRecord{
		BarcodeID:  "789",
		Round:      model.Int(3),
		Branch:     model.Int(1),
		CountedQty: model.Int(7),
		Timestamp:  "01/02/2026 10:00:00",
	})
	require.NoError(t, err)

	err = NewHTTPClient(testConfig(srv.URL)).Insert(context.Background(), model.TableResults, fields)
	require.NoError(t, err)

	assert.Equal(t, float64(789), body[FieldBarcode])
	assert.Equal(t, float64(7), body[FieldCounted])
	assert.Equal(t, "01/02/2026 10:00:00", body[FieldTimestamp])
	assert.NotContains(t, body, FieldExpected)
}

func TestHTTPClient_UpdatePatchesRowByID(t *testing.T) {
	var body map[string]any
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"Id":12}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(testConfig(srv.URL))
	err := client.Update(context.Background(), model.TableResults, 12, map[string]any{FieldCounted: 9})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Contains(t, gotPath, "/res/records")
	assert.Equal(t, float64(12), body["Id"])
	assert.Equal(t, float64(9), body[FieldCounted])
}

func TestHTTPClient_UpdateMissingRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"msg":"Record not found"}`)
	}))
	defer srv.Close()

	err := NewHTTPClient(testConfig(srv.URL)).Update(context.Background(), model.TableResults, 99, map[string]any{FieldCounted: 1})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, KindProtocol, KindOf(err))
	assert.Contains(t, err.Error(), "Record not found")
}

func TestInventoryFieldsRejectsBadBarcode(t *testing.T) {
	_, err := InventoryFields(model.InventoryRecord{BarcodeID: "abc"})
	assert.Error(t, err)
}

func TestDecodeRows(t *testing.T) {
	p, err := DecodeProduct(json.RawMessage(`{"Id":4,"CODPROD":"77","PRODUT":"Widget"}`))
	require.NoError(t, err)
	assert.Equal(t, 77, model.IntValue(p.ProductCode))
	assert.Equal(t, 4, model.IntValue(p.RowID))
	assert.Equal(t, "Widget", p.Name)

	u, err := DecodeUser(json.RawMessage(`{"Id":1,"user":"ana","password":"pw","status":"A","CODFUNC":12}`))
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, 12, model.IntValue(u.OperatorCode))

	_, err = DecodeInventory(json.RawMessage(`{"QTPROD":"many"}`))
	assert.Error(t, err)
}

func TestFilterMatch(t *testing.T) {
	row := map[string]any{"CODBARID": "123", "CODPROD": float64(9), "NUMINVENT": float64(2)}

	assert.True(t, Eq("CODBARID", 123).Match(row))
	assert.True(t, Eq("CODPROD", 9).Match(row))
	assert.False(t, Eq("CODPROD", 8).Match(row))
	assert.True(t, Or(Eq("CODPROD", 8), Eq("CODPROD", 9)).Match(row))
	assert.False(t, And(Eq("CODPROD", 9), Eq("NUMINVENT", 3)).Match(row))
	assert.Equal(t, "(CODPROD,eq,9)~and(NUMINVENT,eq,3)", And(Eq("CODPROD", 9), Eq("NUMINVENT", 3)).Expr())
}
