package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory RecordStore used in tests and as a scratch
// catalog for the seeder.
type MemStore struct {
	mu      sync.Mutex
	records []Record

	// FailNextSave makes the next Save return ErrStorage; used to test
	// compensation paths.
	FailNextSave bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Load(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = append(Record(nil), r...)
	}
	return out, nil
}

func (s *MemStore) Save(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNextSave {
		s.FailNextSave = false
		return ErrStorage
	}
	s.records = make([]Record, len(records))
	for i, r := range records {
		s.records[i] = append(Record(nil), r...)
	}
	return nil
}

// MemCatalog is an all-in-memory Catalog.
type MemCatalog struct {
	users          *MemStore
	appointments   *MemStore
	availability   *MemStore
	outcomes       *MemStore
	medicines      *MemStore
	bills          *MemStore
	replenishments *MemStore
}

// NewMemCatalog creates an empty in-memory catalog.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{
		users:          NewMemStore(),
		appointments:   NewMemStore(),
		availability:   NewMemStore(),
		outcomes:       NewMemStore(),
		medicines:      NewMemStore(),
		bills:          NewMemStore(),
		replenishments: NewMemStore(),
	}
}

func (c *MemCatalog) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *MemCatalog) Users() RecordStore          { return c.users }
func (c *MemCatalog) Appointments() RecordStore   { return c.appointments }
func (c *MemCatalog) Availability() RecordStore   { return c.availability }
func (c *MemCatalog) Outcomes() RecordStore       { return c.outcomes }
func (c *MemCatalog) Medicines() RecordStore      { return c.medicines }
func (c *MemCatalog) Bills() RecordStore          { return c.bills }
func (c *MemCatalog) Replenishments() RecordStore { return c.replenishments }
func (c *MemCatalog) Close() error                { return nil }
