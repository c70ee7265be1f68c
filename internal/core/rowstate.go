package core

import (
	"errors"
	"fmt"
)

// RowKey addresses one grid cell of a report: one entity in one period.
type RowKey struct {
	EntityID int64
	Period   Period
}

// RowMode is the per-row render mode. Modes are mutually exclusive; a row is
// always in exactly one of them.
type RowMode int

const (
	ViewPersisted RowMode = iota
	ViewPlaceholder
	Editing
	Adding
)

func (m RowMode) String() string {
	switch m {
	case ViewPersisted:
		return "view"
	case ViewPlaceholder:
		return "placeholder"
	case Editing:
		return "editing"
	case Adding:
		return "adding"
	default:
		return "unknown"
	}
}

var (
	ErrRowBusy     = errors.New("another row is already being edited")
	ErrNotEditable = errors.New("row is not in an editable state")
	ErrNoDraft     = errors.New("row has no draft")
)

type rowState struct {
	mode  RowMode
	draft Metrics
}

// Table tracks row modes and drafts for one rendered report instance. A
// single-row table (the classic screens) allows at most one Editing/Adding row
// at a time; a bulk-entry table allows one Adding draft per placeholder, each
// independently submittable.
type Table struct {
	bulk    bool
	records map[RowKey]Record
	states  map[RowKey]rowState
	order   []RowKey
}

// NewTable seeds row modes from a period's rows: persisted records start in
// ViewPersisted, placeholders in ViewPlaceholder.
func NewTable(rows []Record, bulk bool) *Table {
	t := &Table{
		bulk:    bulk,
		records: make(map[RowKey]Record, len(rows)),
		states:  make(map[RowKey]rowState, len(rows)),
		order:   make([]RowKey, 0, len(rows)),
	}
	for _, r := range rows {
		k := r.Key()
		t.records[k] = r
		mode := ViewPlaceholder
		if r.Persisted {
			mode = ViewPersisted
		}
		t.states[k] = rowState{mode: mode}
		t.order = append(t.order, k)
	}
	return t
}

// Mode returns the row's current mode; unknown keys read as placeholders.
func (t *Table) Mode(k RowKey) RowMode {
	if st, ok := t.states[k]; ok {
		return st.mode
	}
	return ViewPlaceholder
}

// Record returns the loaded record backing a row.
func (t *Table) Record(k RowKey) (Record, bool) {
	r, ok := t.records[k]
	return r, ok
}

// Draft returns the row's draft metrics while Editing or Adding.
func (t *Table) Draft(k RowKey) (Metrics, error) {
	st, ok := t.states[k]
	if !ok || (st.mode != Editing && st.mode != Adding) {
		return Metrics{}, ErrNoDraft
	}
	return st.draft, nil
}

func (t *Table) busy() bool {
	for _, st := range t.states {
		if st.mode == Editing || st.mode == Adding {
			return true
		}
	}
	return false
}

// BeginEdit moves a persisted row into Editing with a draft copy of its
// metrics. Only one row may be editing at a time on single-row tables.
func (t *Table) BeginEdit(k RowKey) error {
	st, ok := t.states[k]
	if !ok || st.mode != ViewPersisted {
		return fmt.Errorf("begin edit %v: %w", k, ErrNotEditable)
	}
	if !t.bulk && t.busy() {
		return ErrRowBusy
	}
	t.states[k] = rowState{mode: Editing, draft: t.records[k].Metrics}
	return nil
}

// BeginAdd moves a placeholder row into Adding with an empty draft.
func (t *Table) BeginAdd(k RowKey) error {
	st, ok := t.states[k]
	if !ok || st.mode != ViewPlaceholder {
		return fmt.Errorf("begin add %v: %w", k, ErrNotEditable)
	}
	if !t.bulk && t.busy() {
		return ErrRowBusy
	}
	t.states[k] = rowState{mode: Adding}
	return nil
}

// SetDraft replaces the draft of an editing or adding row.
func (t *Table) SetDraft(k RowKey, m Metrics) error {
	st, ok := t.states[k]
	if !ok || (st.mode != Editing && st.mode != Adding) {
		return ErrNoDraft
	}
	st.draft = m
	t.states[k] = st
	return nil
}

// Cancel discards the draft and restores the pre-edit mode. The backing
// record is untouched.
func (t *Table) Cancel(k RowKey) {
	st, ok := t.states[k]
	if !ok {
		return
	}
	switch st.mode {
	case Editing:
		t.states[k] = rowState{mode: ViewPersisted}
	case Adding:
		t.states[k] = rowState{mode: ViewPlaceholder}
	}
}

// GuardAdd is the client-side duplicate check run before an Adding save: if a
// persisted record is already loaded for the key the save must not reach the
// backend. Best effort only; the backend's conflict response stays
// authoritative.
func (t *Table) GuardAdd(k RowKey) error {
	if r, ok := t.records[k]; ok && r.Persisted {
		return ErrConflict
	}
	return nil
}

// CommitAdd promotes an Adding row to ViewPersisted with the saved record.
func (t *Table) CommitAdd(k RowKey, saved Record) error {
	st, ok := t.states[k]
	if !ok || st.mode != Adding {
		return fmt.Errorf("commit add %v: %w", k, ErrNotEditable)
	}
	saved.Persisted = true
	t.records[k] = saved
	t.states[k] = rowState{mode: ViewPersisted}
	return nil
}

// CommitEdit applies an update result and returns the row to ViewPersisted.
func (t *Table) CommitEdit(k RowKey, updated Record) error {
	st, ok := t.states[k]
	if !ok || st.mode != Editing {
		return fmt.Errorf("commit edit %v: %w", k, ErrNotEditable)
	}
	updated.Persisted = true
	t.records[k] = updated
	t.states[k] = rowState{mode: ViewPersisted}
	return nil
}

// CommitDelete reverts a persisted row to a placeholder for its period. The
// roster entity itself is untouched.
func (t *Table) CommitDelete(k RowKey) {
	r := t.records[k]
	t.records[k] = Placeholder(Entity{ID: k.EntityID, Kind: r.Kind, DisplayName: "-"}, k.Period)
	t.states[k] = rowState{mode: ViewPlaceholder}
}

// ApplyToAll copies the source row's draft metrics into every other Adding
// draft in the same period that has not been submitted yet. Persisted rows are
// never overwritten.
func (t *Table) ApplyToAll(src RowKey) error {
	srcState, ok := t.states[src]
	if !ok || srcState.mode != Adding {
		return ErrNoDraft
	}
	for _, k := range t.order {
		if k == src || k.Period != src.Period {
			continue
		}
		if st := t.states[k]; st.mode == Adding {
			st.draft = srcState.draft
			t.states[k] = st
		}
	}
	return nil
}

// Drafts lists the keys of all Adding rows in grid order, the iteration set
// for a bulk submit.
func (t *Table) Drafts() []RowKey {
	var out []RowKey
	for _, k := range t.order {
		if t.states[k].mode == Adding {
			out = append(out, k)
		}
	}
	return out
}
