// Package remote talks to the REST table API that holds the Comparison, Results, Lookup and Users tables.
package remote

import (
	"context"
	"encoding/json"

	"stockcount-api/internal/model"
)

// ListOptions selects one page of rows.
type ListOptions struct {
	Limit  int
	Offset int
	Where  Filter
}

// Page is one page of raw rows. Rows are decoded by the caller so a single bad row can be skipped.
type Page struct {
	Rows []json.RawMessage
}

// Client is the remote table transport.
type Client interface {
	// List returns rows of table matching opts.
	List(ctx context.Context, table model.Table, opts ListOptions) (*Page, error)

	// GetByKey returns the first row whose business key equals key, or a not-found error.
	GetByKey(ctx context.Context, table model.Table, key string) (json.RawMessage, error)

	// Insert creates a row.
	Insert(ctx context.Context, table model.Table, fields map[string]any) error

	// Update patches the row with the given remote id.
	Update(ctx context.Context, table model.Table, rowID int, fields map[string]any) error
}

// KeyField returns the column holding the business key of table.
func KeyField(table model.Table) string {
	switch table {
	case model.TableLookup:
		return FieldProductCode
	case model.TableUsers:
		return FieldUsername
	default:
		return FieldBarcode
	}
}

// KeyFilter builds the equality filter used to fetch a row by business key.
// Barcodes and product codes are compared numerically when they parse.
func KeyFilter(table model.Table, key string) Filter {
	switch table {
	case model.TableUsers:
		return Eq(FieldUsername, key)
	default:
		if n, ok := model.ParseBarcode(key); ok {
			return Eq(KeyField(table), n)
		}
		return Eq(KeyField(table), key)
	}
}
