package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// CSVStore keeps one collection in a comma-delimited file. A missing file
// reads as an empty collection. Saves write to a temp file and rename so a
// crash never leaves a half-written collection behind.
type CSVStore struct {
	path   string
	mu     sync.Mutex
	logger *zerolog.Logger
}

// NewCSVStore creates a store backed by the file at path.
func NewCSVStore(path string, logger *zerolog.Logger) *CSVStore {
	return &CSVStore{path: path, logger: logger}
}

// Load reads every record in file order.
func (s *CSVStore) Load(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *CSVStore) load() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, s.path, err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record(row)
	}
	return records, nil
}

// Save rewrites the whole collection.
func (s *CSVStore) Save(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", ErrStorage, s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: temp file for %s: %v", ErrStorage, s.path, err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("%w: write %s: %v", ErrStorage, s.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: flush %s: %v", ErrStorage, s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrStorage, s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace %s: %v", ErrStorage, s.path, err)
	}
	return nil
}

// CSVCatalog is a Catalog over one file per collection in a data directory.
type CSVCatalog struct {
	dir    string
	logger *zerolog.Logger

	users          *CSVStore
	appointments   *CSVStore
	availability   *CSVStore
	outcomes       *CSVStore
	medicines      *CSVStore
	bills          *CSVStore
	replenishments *CSVStore
}

// NewCSVCatalog creates the catalog rooted at dir.
func NewCSVCatalog(dir string, logger *zerolog.Logger) *CSVCatalog {
	open := func(name string) *CSVStore {
		return NewCSVStore(filepath.Join(dir, name), logger)
	}
	return &CSVCatalog{
		dir:            dir,
		logger:         logger,
		users:          open("users.csv"),
		appointments:   open("appointments.csv"),
		availability:   open("availability.csv"),
		outcomes:       open("outcomes.csv"),
		medicines:      open("medicines.csv"),
		bills:          open("bills.csv"),
		replenishments: open("replenishments.csv"),
	}
}

// RunInTx runs fn directly. Plain files offer no cross-file transaction;
// callers that need both-or-neither semantics validate up front and
// compensate on failure.
func (c *CSVCatalog) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *CSVCatalog) Users() RecordStore          { return c.users }
func (c *CSVCatalog) Appointments() RecordStore   { return c.appointments }
func (c *CSVCatalog) Availability() RecordStore   { return c.availability }
func (c *CSVCatalog) Outcomes() RecordStore       { return c.outcomes }
func (c *CSVCatalog) Medicines() RecordStore      { return c.medicines }
func (c *CSVCatalog) Bills() RecordStore          { return c.bills }
func (c *CSVCatalog) Replenishments() RecordStore { return c.replenishments }

// Close is a no-op for file-backed storage.
func (c *CSVCatalog) Close() error { return nil }
