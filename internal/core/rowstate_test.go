package core

import (
	"errors"
	"testing"
)

func tableRows(p Period) []Record {
	return []Record{
		{ID: 100, EntityID: 1, Kind: KindUser, Period: p, Metrics: Metrics{Target: 9}, Persisted: true},
		{EntityID: 2, Kind: KindUser, Period: p},
		{EntityID: 3, Kind: KindUser, Period: p},
	}
}

func TestTableInitialModes(t *testing.T) {
	p := Period{Month: 3, Year: 2026}
	tbl := NewTable(tableRows(p), false)

	if m := tbl.Mode(RowKey{1, p}); m != ViewPersisted {
		t.Fatalf("persisted row mode = %v", m)
	}
	if m := tbl.Mode(RowKey{2, p}); m != ViewPlaceholder {
		t.Fatalf("placeholder row mode = %v", m)
	}
}

func TestSingleRowEditConstraint(t *testing.T) {
	p := Period{Month: 3, Year: 2026}
	tbl := NewTable(tableRows(p), false)

	if err := tbl.BeginEdit(RowKey{1, p}); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := tbl.BeginAdd(RowKey{2, p}); !errors.Is(err, ErrRowBusy) {
		t.Fatalf("expected ErrRowBusy, got %v", err)
	}
	tbl.Cancel(RowKey{1, p})
	if m := tbl.Mode(RowKey{1, p}); m != ViewPersisted {
		t.Fatalf("cancel should restore ViewPersisted, got %v", m)
	}
	if err := tbl.BeginAdd(RowKey{2, p}); err != nil {
		t.Fatalf("begin add after cancel: %v", err)
	}
}

func TestEditDraftIsolation(t *testing.T) {
	p := Period{Month: 3, Year: 2026}
	tbl := NewTable(tableRows(p), false)
	k := RowKey{1, p}

	if err := tbl.BeginEdit(k); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := tbl.SetDraft(k, Metrics{Target: 15}); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	tbl.Cancel(k)

	// Cancel discards the draft; the record keeps its original metrics.
	r, _ := tbl.Record(k)
	if r.Metrics.Target != 9 {
		t.Fatalf("cancel leaked draft into record: %+v", r.Metrics)
	}
}

func TestAddGuardBlocksDuplicates(t *testing.T) {
	p := Period{Month: 3, Year: 2026}
	tbl := NewTable(tableRows(p), false)

	if err := tbl.GuardAdd(RowKey{1, p}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for persisted row, got %v", err)
	}
	if err := tbl.GuardAdd(RowKey{2, p}); err != nil {
		t.Fatalf("placeholder should pass the guard, got %v", err)
	}
}

func TestCommitAddAndDelete(t *testing.T) {
	p := Period{Month: 3, Year: 2026}
	tbl := NewTable(tableRows(p), false)
	k := RowKey{2, p}

	if err := tbl.BeginAdd(k); err != nil {
		t.Fatalf("begin add: %v", err)
	}
	saved := Record{ID: 200, EntityID: 2, Kind: KindUser, Period: p, Metrics: Metrics{Target: 10}}
	if err := tbl.CommitAdd(k, saved); err != nil {
		t.Fatalf("commit add: %v", err)
	}
	if m := tbl.Mode(k); m != ViewPersisted {
		t.Fatalf("mode after commit = %v", m)
	}
	r, _ := tbl.Record(k)
	if r.ID != 200 || !r.Persisted {
		t.Fatalf("record after commit: %+v", r)
	}

	// Delete reverts the entity to a placeholder for the period.
	tbl.CommitDelete(k)
	if m := tbl.Mode(k); m != ViewPlaceholder {
		t.Fatalf("mode after delete = %v", m)
	}
	r, _ = tbl.Record(k)
	if r.Persisted || r.ID != 0 {
		t.Fatalf("record after delete: %+v", r)
	}
}

func TestBulkApplyToAll(t *testing.T) {
	p := Period{Month: 1, Year: 2026}
	tbl := NewTable(tableRows(p), true)

	for _, id := range []int64{2, 3} {
		if err := tbl.BeginAdd(RowKey{id, p}); err != nil {
			t.Fatalf("begin add %d: %v", id, err)
		}
	}
	src := RowKey{2, p}
	if err := tbl.SetDraft(src, Metrics{Target: 12, WorkingDays: 20}); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	if err := tbl.ApplyToAll(src); err != nil {
		t.Fatalf("apply to all: %v", err)
	}

	d, err := tbl.Draft(RowKey{3, p})
	if err != nil {
		t.Fatalf("draft 3: %v", err)
	}
	if d.Target != 12 || d.WorkingDays != 20 {
		t.Fatalf("draft 3 = %+v", d)
	}

	// The persisted row is never touched.
	r, _ := tbl.Record(RowKey{1, p})
	if r.Metrics.Target != 9 {
		t.Fatalf("apply-to-all touched persisted row: %+v", r.Metrics)
	}
}

func TestBulkDraftsOrder(t *testing.T) {
	p := Period{Month: 1, Year: 2026}
	tbl := NewTable(tableRows(p), true)
	_ = tbl.BeginAdd(RowKey{3, p})
	_ = tbl.BeginAdd(RowKey{2, p})

	drafts := tbl.Drafts()
	if len(drafts) != 2 {
		t.Fatalf("drafts = %v", drafts)
	}
	// Grid order, not begin-add order.
	if drafts[0].EntityID != 2 || drafts[1].EntityID != 3 {
		t.Fatalf("drafts out of grid order: %v", drafts)
	}
}
