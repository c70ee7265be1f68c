package memory

import (
	"context"
	"fmt"
	"sync"

	"qboard/internal/core"
	ports "qboard/internal/mirror"
)

// Store is an in-memory stand-in for the spreadsheet mirror, used by tests
// and by deployments that run without Google credentials.
type Store struct {
	mu   sync.Mutex
	rows map[core.EntityKind]map[int64]core.Record
}

var _ ports.ReportMirror = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[core.EntityKind]map[int64]core.Record{}}
}

// AppendRecord stores the record keyed by ID and returns a synthetic row
// reference. Repeated appends for the same ID overwrite the previous row.
func (s *Store) AppendRecord(_ context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[r.Kind] == nil {
		s.rows[r.Kind] = map[int64]core.Record{}
	}
	s.rows[r.Kind][r.ID] = r
	return fmt.Sprintf("mem:%s:%d", r.Kind, r.ID), nil
}

// RemoveRecord drops the row if present. Unknown IDs are ignored.
func (s *Store) RemoveRecord(_ context.Context, kind core.EntityKind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows[kind], id)
	return nil
}

// Get reports the mirrored row for a record, for test assertions.
func (s *Store) Get(kind core.EntityKind, id int64) (core.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[kind][id]
	return r, ok
}

// Len reports how many rows are mirrored for a kind.
func (s *Store) Len(kind core.EntityKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[kind])
}
