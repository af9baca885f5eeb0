package model

import "time"

// AuditLevel classifies an audit entry.
type AuditLevel string

const (
	AuditInfo    AuditLevel = "info"
	AuditWarning AuditLevel = "warning"
	AuditError   AuditLevel = "error"
	AuditSuccess AuditLevel = "success"
)

// AuditEntry represents a record in the audit journal.
type AuditEntry struct {
	Timestamp time.Time  `json:"timestamp" bson:"timestamp"`
	Level     AuditLevel `json:"level" bson:"level"`
	Category  string     `json:"category" bson:"category"`
	Message   string     `json:"message" bson:"message"`
	Detail    string     `json:"detail,omitempty" bson:"detail,omitempty"`
}
