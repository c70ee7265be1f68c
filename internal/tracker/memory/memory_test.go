package memory

import (
	"context"
	"errors"
	"testing"

	"qboard/internal/core"
	"qboard/internal/tracker"
)

func newTestStore() *Store {
	return New(
		[]core.Entity{
			{ID: 1, Kind: core.KindUser, DisplayName: "Alice", GroupName: "QC"},
			{ID: 2, Kind: core.KindUser, DisplayName: "Ben", GroupName: "QC"},
		},
		[]core.Entity{
			{ID: 1, Kind: core.KindProject, DisplayName: "Atlas"},
		},
	)
}

func TestAddListRoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	p := core.Period{Month: 2, Year: 2026}

	id, err := s.AddRecord(ctx, core.Record{
		EntityID: 1, Kind: core.KindUser, Period: p,
		Metrics: core.Metrics{Target: 10},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected assigned id, got %d", id)
	}

	got, err := s.ListRecords(ctx, core.KindUser, tracker.ListFilter{Period: p})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != id || got[0].Metrics.Target != 10 || !got[0].Persisted {
		t.Fatalf("listed: %+v", got)
	}
}

func TestAddConflict(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	r := core.Record{EntityID: 1, Kind: core.KindUser, Period: core.Period{Month: 3, Year: 2026}, Metrics: core.Metrics{Target: 5}}

	if _, err := s.AddRecord(ctx, r); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := s.AddRecord(ctx, r)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeleteRevertsToPlaceholderOnRebuild(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	p := core.Period{Month: 2, Year: 2026}

	id, err := s.AddRecord(ctx, core.Record{EntityID: 1, Kind: core.KindUser, Period: p, Metrics: core.Metrics{Target: 10}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeleteRecord(ctx, core.KindUser, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	records, err := s.ListRecords(ctx, core.KindUser, tracker.ListFilter{Period: p})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	roster, _ := s.ListRoster(ctx, core.KindUser)
	v := core.BuildView(records, roster, p, core.ViewOptions{})
	for _, row := range v.Rows[p] {
		if row.EntityID == 1 && row.Persisted {
			t.Fatalf("entity 1 should be a placeholder again: %+v", row)
		}
	}
}

func TestUpdateMissing(t *testing.T) {
	s := newTestStore()
	err := s.UpdateRecord(context.Background(), core.Record{ID: 99, Kind: core.KindUser, Metrics: core.Metrics{Target: 1}})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRecentNewestFirst(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	for month := 1; month <= 3; month++ {
		if _, err := s.AddRecord(ctx, core.Record{
			EntityID: 1, Kind: core.KindUser,
			Period:  core.Period{Month: month, Year: 2026},
			Metrics: core.Metrics{Target: float64(month)},
		}); err != nil {
			t.Fatalf("add month %d: %v", month, err)
		}
	}
	recent, err := s.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Period.Month != 3 || recent[1].Period.Month != 2 {
		t.Fatalf("recent: %+v", recent)
	}
}
