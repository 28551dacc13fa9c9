package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers test for them with errors.Is.
var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("object not found")
	// ErrUnknownObjectType means a stored object_type matches no variant.
	ErrUnknownObjectType = errors.New("unknown object type")
	// ErrProtectedObject is returned when removing a reserved container.
	ErrProtectedObject = errors.New("object is protected")
	// ErrInvalidParent means parent_id names no container.
	ErrInvalidParent = errors.New("parent is not a container")
	// ErrInvalidReference means ref_id names no stored original object.
	ErrInvalidReference = errors.New("reference target is missing or virtual")
	// ErrShutdown is returned for operations submitted to a stopping backend.
	ErrShutdown = errors.New("storage is shutting down")
	// ErrMigration means the schema could not be brought to the current version.
	ErrMigration = errors.New("schema migration failed")
	// ErrCorruptDatabase means the database and every fallback were unusable.
	ErrCorruptDatabase = errors.New("database is corrupt")
)

// BackendError wraps a native database error together with the statement
// that produced it.
type BackendError struct {
	Backend   string
	Code      string
	Message   string
	Statement string
	Err       error
}

// NewBackendError wraps err. code is the driver's native error code, or empty
// when the driver did not supply one.
func NewBackendError(backend, code, statement string, err error) *BackendError {
	return &BackendError{
		Backend:   backend,
		Code:      code,
		Message:   err.Error(),
		Statement: statement,
		Err:       err,
	}
}

func (e *BackendError) Error() string {
	msg := e.Backend + " error"
	if e.Code != "" {
		msg += " " + e.Code
	}
	msg += ": " + e.Message
	if e.Statement != "" {
		msg += fmt.Sprintf(" (statement: %s)", truncate(e.Statement, 512))
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
