package database

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by GetRecordByID for unknown ids
var ErrRecordNotFound = errors.New("record not found")

type RecordStore interface {
	CreateDatabase(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// InsertRecord stores a new record and returns it with id and timestamps set
	InsertRecord(ctx context.Context, record NewRecord) (*Record, error)
	// ListPublicRecords returns all public records, newest first
	ListPublicRecords(ctx context.Context) ([]*Record, error)
	// SearchRecords matches term case-insensitively against name, message and place.
	// Only public records are returned, newest first.
	SearchRecords(ctx context.Context, term string) ([]*Record, error)
	GetRecordByID(ctx context.Context, id string) (*Record, error)
}
