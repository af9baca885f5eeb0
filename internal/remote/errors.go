package remote

import (
	"errors"
	"fmt"
	"net/http"

	"stockcount-api/internal/model"
)

// Kind classifies a remote failure.
type Kind string

const (
	// KindTransport covers timeouts, refused connections and other network failures.
	KindTransport Kind = "transport"
	// KindProtocol covers non-2xx statuses and non-JSON bodies.
	KindProtocol Kind = "protocol"
	// KindData covers bodies that are JSON but cannot be decoded into the expected shape.
	KindData Kind = "data"
)

// Error is returned by Client implementations.
type Error struct {
	Kind    Kind
	Table   model.Table
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("remote %s error on %s (HTTP %d): %s", e.Kind, e.Table, e.Status, msg)
	}
	return fmt.Sprintf("remote %s error on %s: %s", e.Kind, e.Table, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a protocol error with status 404.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

// KindOf returns the error kind, or "" when err is not a remote error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
