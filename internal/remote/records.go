package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"stockcount-api/internal/model"
)

// Remote column names.
const (
	FieldID          = "id"
	FieldRound       = "NUMINVENT"
	FieldBranch      = "CODFILIAL"
	FieldProductCode = "CODPROD"
	FieldBarcode     = "CODBARID"
	FieldExpected    = "QTPROD"
	FieldCounted     = "QTCONT"
	FieldOperator    = "CODFUNC"
	FieldStatus      = "STATUS"
	FieldTimestamp   = "DATA"
	FieldProductName = "PRODUT"
	FieldUsername    = "user"
)

// flexInt decodes a JSON number, a numeric string, or null.
type flexInt struct {
	Value *int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		f.Value = nil
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			f.Value = nil
			return nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	v := int(n)
	f.Value = &v
	return nil
}

// flexString decodes a JSON string or number into its textual content.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

type inventoryRow struct {
	ID          flexInt    `json:"id"`
	IDUpper     flexInt    `json:"Id"`
	Round       flexInt    `json:"NUMINVENT"`
	Branch      flexInt    `json:"CODFILIAL"`
	ProductCode flexInt    `json:"CODPROD"`
	Barcode     flexString `json:"CODBARID"`
	Expected    flexInt    `json:"QTPROD"`
	Counted     flexInt    `json:"QTCONT"`
	Operator    flexInt    `json:"CODFUNC"`
	Status      *string    `json:"STATUS"`
	Timestamp   *string    `json:"DATA"`
	ProductName *string    `json:"PRODUT"`
}

type productRow struct {
	ID          flexInt `json:"id"`
	IDUpper     flexInt `json:"Id"`
	ProductCode flexInt `json:"CODPROD"`
	Name        *string `json:"PRODUT"`
}

type userRow struct {
	ID       flexInt `json:"Id"`
	IDLower  flexInt `json:"id"`
	Username *string `json:"user"`
	Password *string `json:"password"`
	Status   *string `json:"status"`
	Operator flexInt `json:"CODFUNC"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func firstID(a, b flexInt) *int {
	if a.Value != nil {
		return a.Value
	}
	return b.Value
}

// DecodeInventory decodes one Comparison or Results row.
func DecodeInventory(raw json.RawMessage) (model.InventoryRecord, error) {
	var row inventoryRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.InventoryRecord{}, fmt.Errorf("failed to decode inventory row: %w", err)
	}
	return model.InventoryRecord{
		RowID:        firstID(row.ID, row.IDUpper),
		BarcodeID:    strings.TrimSpace(string(row.Barcode)),
		Round:        row.Round.Value,
		Branch:       row.Branch.Value,
		ProductCode:  row.ProductCode.Value,
		ExpectedQty:  row.Expected.Value,
		CountedQty:   row.Counted.Value,
		OperatorCode: row.Operator.Value,
		Status:       str(row.Status),
		Timestamp:    str(row.Timestamp),
		ProductName:  str(row.ProductName),
	}, nil
}

// DecodeProduct decodes one Lookup row.
func DecodeProduct(raw json.RawMessage) (model.ProductLookupRecord, error) {
	var row productRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.ProductLookupRecord{}, fmt.Errorf("failed to decode product row: %w", err)
	}
	return model.ProductLookupRecord{
		RowID:       firstID(row.ID, row.IDUpper),
		ProductCode: row.ProductCode.Value,
		Name:        str(row.Name),
	}, nil
}

// DecodeUser decodes one Users row.
func DecodeUser(raw json.RawMessage) (model.UserRecord, error) {
	var row userRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.UserRecord{}, fmt.Errorf("failed to decode user row: %w", err)
	}
	return model.UserRecord{
		RowID:        firstID(row.ID, row.IDLower),
		Username:     str(row.Username),
		Password:     str(row.Password),
		Status:       str(row.Status),
		OperatorCode: row.Operator.Value,
	}, nil
}

// InventoryFields builds the column map used to insert a Results row.
// The barcode is sent as a number; nil fields are omitted.
func InventoryFields(r model.InventoryRecord) (map[string]any, error) {
	barcode, ok := model.ParseBarcode(r.BarcodeID)
	if !ok {
		return nil, fmt.Errorf("invalid barcode %q", r.BarcodeID)
	}
	fields := map[string]any{FieldBarcode: barcode}

	put := func(name string, v *int) {
		if v != nil {
			fields[name] = *v
		}
	}
	put(FieldRound, r.Round)
	put(FieldBranch, r.Branch)
	put(FieldProductCode, r.ProductCode)
	put(FieldExpected, r.ExpectedQty)
	put(FieldCounted, r.CountedQty)
	put(FieldOperator, r.OperatorCode)

	if r.Status != "" {
		fields[FieldStatus] = r.Status
	}
	if r.Timestamp != "" {
		fields[FieldTimestamp] = r.Timestamp
	}
	return fields, nil
}
