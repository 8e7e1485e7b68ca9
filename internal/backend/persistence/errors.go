package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Kind classifies a persistence failure
type Kind string

const (
	KindStorage      Kind = "storage"
	KindDatabase     Kind = "database"
	KindConnectivity Kind = "connectivity"
)

var (
	ErrStorageFailure      = errors.New("storage failure")
	ErrDatabaseFailure     = errors.New("database failure")
	ErrConnectivityFailure = errors.New("connectivity failure")
)

// PersistenceError wraps a backend error with the operation that failed
type PersistenceError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	switch target {
	case ErrStorageFailure:
		return e.Kind == KindStorage
	case ErrDatabaseFailure:
		return e.Kind == KindDatabase
	case ErrConnectivityFailure:
		return e.Kind == KindConnectivity
	}
	return false
}

// newError classifies err as kind unless the backend could not be reached at all
func newError(kind Kind, op string, err error) *PersistenceError {
	if isConnectivityError(err) {
		kind = KindConnectivity
	}
	return &PersistenceError{Kind: kind, Op: op, Err: err}
}

func isConnectivityError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
