package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// PersistenceError wraps a failed read or write against a backend.
type PersistenceError struct {
	Op      string // "read" or "write"
	Backend string
	Err     error

	retryable bool
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the operation may succeed.
func (e *PersistenceError) Retryable() bool { return e.retryable }

func readErr(backend string, err error) error {
	return &PersistenceError{Op: "read", Backend: backend, Err: err, retryable: isTransient(err)}
}

func writeErr(backend string, err error) error {
	return &PersistenceError{Op: "write", Backend: backend, Err: err, retryable: isTransient(err)}
}

// IsRetryable reports whether err is a PersistenceError worth retrying.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Retryable()
}

// errStatus is an HTTP failure reported by the catalog server.
type errStatus struct {
	Code int
	Body string
}

func (e errStatus) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code) ||
			pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var st errStatus
	if errors.As(err, &st) {
		return st.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return !errors.Is(err, fs.ErrPermission)
	}
	return false
}
