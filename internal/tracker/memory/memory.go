package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"qboard/internal/core"
	"qboard/internal/tracker"
)

// Store is an in-memory backend used for development and tests.
type Store struct {
	mu     sync.Mutex
	nextID int64
	roster map[core.EntityKind][]core.Entity
	items  []core.Record
}

var (
	_ tracker.RecordLister  = (*Store)(nil)
	_ tracker.RecentLister  = (*Store)(nil)
	_ tracker.RecordWriter  = (*Store)(nil)
	_ tracker.RecordUpdater = (*Store)(nil)
	_ tracker.RecordDeleter = (*Store)(nil)
	_ tracker.RosterReader  = (*Store)(nil)
)

func New(users, projects []core.Entity) *Store {
	return &Store{
		nextID: 1,
		roster: map[core.EntityKind][]core.Entity{
			core.KindUser:    users,
			core.KindProject: projects,
		},
	}
}

// NewFromFiles seeds the roster from plain-text files under base
// (seed_users.txt, seed_projects.txt; one "name" or "name|group" per line).
// Missing files fall back to a small demo roster.
func NewFromFiles(base string) *Store {
	users := readRoster(filepath.Join(base, "seed_users.txt"), core.KindUser)
	projects := readRoster(filepath.Join(base, "seed_projects.txt"), core.KindProject)
	if len(users) == 0 {
		users = []core.Entity{
			{ID: 1, Kind: core.KindUser, DisplayName: "Alice Reyes", GroupName: "QC"},
			{ID: 2, Kind: core.KindUser, DisplayName: "Ben Okafor", GroupName: "QC"},
			{ID: 3, Kind: core.KindUser, DisplayName: "Mei Tanaka", GroupName: "Billing"},
		}
	}
	if len(projects) == 0 {
		projects = []core.Entity{
			{ID: 1, Kind: core.KindProject, DisplayName: "Atlas Review"},
			{ID: 2, Kind: core.KindProject, DisplayName: "Meridian QC"},
		}
	}
	return New(users, projects)
}

func (s *Store) ListRoster(_ context.Context, kind core.EntityKind) ([]core.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Entity(nil), s.roster[kind]...)
	return out, nil
}

func (s *Store) ListRecords(_ context.Context, kind core.EntityKind, f tracker.ListFilter) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Record
	for _, r := range s.items {
		if r.Kind != kind {
			continue
		}
		if !f.Period.IsZero() && r.Period != f.Period {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ListRecent returns the most recently added records across both kinds,
// newest first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.items) {
		limit = len(s.items)
	}
	out := make([]core.Record, 0, limit)
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

func (s *Store) AddRecord(_ context.Context, r core.Record) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Kind == r.Kind && existing.EntityID == r.EntityID && existing.Period == r.Period {
			return 0, fmt.Errorf("add record entity=%d period=%s: %w", r.EntityID, r.Period, core.ErrConflict)
		}
	}
	r.ID = s.nextID
	r.Persisted = true
	s.nextID++
	s.items = append(s.items, r)
	return r.ID, nil
}

func (s *Store) UpdateRecord(_ context.Context, r core.Record) error {
	if r.ID <= 0 {
		return core.ErrNotFound
	}
	if err := r.Metrics.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == r.ID && s.items[i].Kind == r.Kind {
			s.items[i].Metrics = r.Metrics
			if !r.Period.IsZero() {
				s.items[i].Period = r.Period
			}
			return nil
		}
	}
	return fmt.Errorf("update record id=%d: %w", r.ID, core.ErrNotFound)
}

func (s *Store) DeleteRecord(_ context.Context, kind core.EntityKind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].Kind == kind {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete record id=%d: %w", id, core.ErrNotFound)
}

func readRoster(path string, kind core.EntityKind) []core.Entity {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Entity
	sc := bufio.NewScanner(f)
	id := int64(1)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, group := line, ""
		if i := strings.IndexByte(line, '|'); i >= 0 {
			name = strings.TrimSpace(line[:i])
			group = strings.TrimSpace(line[i+1:])
		}
		out = append(out, core.Entity{ID: id, Kind: kind, DisplayName: name, GroupName: group})
		id++
	}
	return out
}
