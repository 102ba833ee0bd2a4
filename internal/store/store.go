// Package store provides whole-collection record storage: every mutating
// call rewrites the entire backing collection, mirroring the flat-file
// semantics of the original record files.
package store

import (
	"context"
	"errors"
)

// Record is one row of a collection.
type Record []string

// ErrStorage wraps I/O failures. Callers treat it as fatal to the current
// operation only, never to the process.
var ErrStorage = errors.New("storage failure")

// RecordStore loads and saves an entire ordered collection of records.
type RecordStore interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// TxRunner groups several Save calls into one atomic unit when the backend
// supports it. The CSV catalog runs the callback as-is; the sqlite catalog
// runs it inside a single transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Catalog hands out the named collections of the hospital data set.
type Catalog interface {
	TxRunner
	Users() RecordStore
	Appointments() RecordStore
	Availability() RecordStore
	Outcomes() RecordStore
	Medicines() RecordStore
	Bills() RecordStore
	Replenishments() RecordStore
	Close() error
}
