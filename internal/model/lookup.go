package model

// ProductLookupRecord maps a product code to its display name.
type ProductLookupRecord struct {
	RowID       *int   `json:"row_id,omitempty"`
	ProductCode *int   `json:"product_code,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Key returns the product code used to index the record.
func (p ProductLookupRecord) Key() (int, bool) {
	if p.ProductCode == nil {
		return 0, false
	}
	return *p.ProductCode, true
}

// UserRecord is a cached operator account used for offline login fallback.
type UserRecord struct {
	RowID        *int   `json:"row_id,omitempty"`
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	Status       string `json:"status,omitempty"`
	OperatorCode *int   `json:"operator_code,omitempty"`
}

// Key returns the username used to index the record.
func (u UserRecord) Key() (string, bool) {
	if u.Username == "" {
		return "", false
	}
	return u.Username, true
}
