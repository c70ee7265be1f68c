package services

import (
	"context"
	"errors"
	"testing"

	"qboard/internal/amqp"
	"qboard/internal/core"
)

type fakeWriter struct {
	nextID int64
	errFor map[int64]error // keyed by EntityID
	added  []core.Record
}

func (f *fakeWriter) AddRecord(_ context.Context, r core.Record) (int64, error) {
	if err := f.errFor[r.EntityID]; err != nil {
		return 0, err
	}
	f.nextID++
	f.added = append(f.added, r)
	return f.nextID, nil
}

type fakeUpdater struct {
	err     error
	updated []core.Record
}

func (f *fakeUpdater) UpdateRecord(_ context.Context, r core.Record) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, r)
	return nil
}

type fakeDeleter struct {
	err     error
	deleted []int64
}

func (f *fakeDeleter) DeleteRecord(_ context.Context, _ core.EntityKind, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePublisher struct {
	published []*amqp.RecordChangeMessage
	err       error
}

func (f *fakePublisher) PublishRecordChange(_ context.Context, msg *amqp.RecordChangeMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func draft(entityID int64, target float64) core.Record {
	return core.Record{
		EntityID: entityID,
		Kind:     core.KindUser,
		Period:   core.Period{Month: 5, Year: 2025},
		Metrics:  core.Metrics{Target: target, WorkingDays: 20},
	}
}

func TestAddTargetPublishesUpsert(t *testing.T) {
	w := &fakeWriter{}
	pub := &fakePublisher{}
	svc := NewTargetService(w, nil, nil, pub)

	id, err := svc.AddTarget(context.Background(), draft(10, 100))
	if err != nil {
		t.Fatalf("AddTarget() error = %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	if pub.published[0].Action != amqp.ActionUpsert || pub.published[0].ID != 1 {
		t.Errorf("message = %+v, want upsert for id 1", pub.published[0])
	}
}

func TestAddTargetRejectsInvalid(t *testing.T) {
	w := &fakeWriter{}
	pub := &fakePublisher{}
	svc := NewTargetService(w, nil, nil, pub)

	_, err := svc.AddTarget(context.Background(), draft(10, 0))
	if !errors.Is(err, core.ErrMissingTarget) {
		t.Fatalf("error = %v, want ErrMissingTarget", err)
	}
	if len(w.added) != 0 {
		t.Error("invalid record must not reach the writer")
	}
	if len(pub.published) != 0 {
		t.Error("invalid record must not publish")
	}
}

func TestAddTargetConflictPassesThrough(t *testing.T) {
	w := &fakeWriter{errFor: map[int64]error{10: core.ErrConflict}}
	pub := &fakePublisher{}
	svc := NewTargetService(w, nil, nil, pub)

	_, err := svc.AddTarget(context.Background(), draft(10, 100))
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	if len(pub.published) != 0 {
		t.Error("conflict must not publish")
	}
}

func TestAddTargetPublisherFailureDoesNotFailSave(t *testing.T) {
	w := &fakeWriter{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTargetService(w, nil, nil, pub)

	id, err := svc.AddTarget(context.Background(), draft(10, 100))
	if err != nil {
		t.Fatalf("AddTarget() error = %v, save must survive publish failure", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
}

func TestAddTargetNilPublisher(t *testing.T) {
	svc := NewTargetService(&fakeWriter{}, nil, nil, nil)
	if _, err := svc.AddTarget(context.Background(), draft(10, 100)); err != nil {
		t.Fatalf("AddTarget() with nil publisher error = %v", err)
	}
}

func TestUpdateTarget(t *testing.T) {
	u := &fakeUpdater{}
	pub := &fakePublisher{}
	svc := NewTargetService(nil, u, nil, pub)

	r := draft(10, 100)
	r.ID = 7

	if err := svc.UpdateTarget(context.Background(), r); err != nil {
		t.Fatalf("UpdateTarget() error = %v", err)
	}
	if len(u.updated) != 1 {
		t.Fatalf("updated %d records, want 1", len(u.updated))
	}
	if len(pub.published) != 1 || pub.published[0].ID != 7 {
		t.Errorf("expected upsert message for id 7, got %+v", pub.published)
	}
}

func TestUpdateTargetMissingID(t *testing.T) {
	svc := NewTargetService(nil, &fakeUpdater{}, nil, nil)
	if err := svc.UpdateTarget(context.Background(), draft(10, 100)); err == nil {
		t.Error("expected error for update without id")
	}
}

func TestUpdateTargetNotFound(t *testing.T) {
	u := &fakeUpdater{err: core.ErrNotFound}
	svc := NewTargetService(nil, u, nil, nil)

	r := draft(10, 100)
	r.ID = 7
	if err := svc.UpdateTarget(context.Background(), r); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTargetPublishesDelete(t *testing.T) {
	d := &fakeDeleter{}
	pub := &fakePublisher{}
	svc := NewTargetService(nil, nil, d, pub)

	period := core.Period{Month: 5, Year: 2025}
	if err := svc.DeleteTarget(context.Background(), core.KindProject, 7, 3, period); err != nil {
		t.Fatalf("DeleteTarget() error = %v", err)
	}
	if len(d.deleted) != 1 || d.deleted[0] != 7 {
		t.Errorf("deleted = %v, want [7]", d.deleted)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	msg := pub.published[0]
	if msg.Action != amqp.ActionDelete || msg.EntityID != 3 || msg.Period != "MAY2025" {
		t.Errorf("message = %+v, want delete for entity 3 MAY2025", msg)
	}
}

func TestBulkSubmitMixedOutcomes(t *testing.T) {
	w := &fakeWriter{errFor: map[int64]error{
		2: core.ErrConflict,
		4: errors.New("gateway timeout"),
	}}
	svc := NewTargetService(w, nil, nil, nil)

	drafts := []core.Record{
		draft(1, 100),
		draft(2, 100), // conflict
		draft(3, 0),   // invalid, rejected before the writer
		draft(4, 100), // transport failure
		draft(5, 100),
	}

	outcomes := svc.BulkSubmit(context.Background(), drafts)
	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(outcomes))
	}

	wantStatus := []SubmitStatus{SubmitSaved, SubmitConflict, SubmitInvalid, SubmitFailed, SubmitSaved}
	for i, want := range wantStatus {
		if outcomes[i].Status != want {
			t.Errorf("outcome[%d].Status = %q, want %q", i, outcomes[i].Status, want)
		}
	}

	// A failing row never stops the batch: rows after it still save.
	if len(w.added) != 2 {
		t.Errorf("writer saw %d saves, want 2", len(w.added))
	}
	if outcomes[4].ID != 2 {
		t.Errorf("outcome[4].ID = %d, want 2", outcomes[4].ID)
	}
	if !errors.Is(outcomes[1].Err, core.ErrConflict) {
		t.Errorf("outcome[1].Err = %v, want ErrConflict", outcomes[1].Err)
	}
	if !errors.Is(outcomes[2].Err, core.ErrMissingTarget) {
		t.Errorf("outcome[2].Err = %v, want ErrMissingTarget", outcomes[2].Err)
	}
}

func TestBulkSubmitEmpty(t *testing.T) {
	svc := NewTargetService(&fakeWriter{}, nil, nil, nil)
	if got := svc.BulkSubmit(context.Background(), nil); len(got) != 0 {
		t.Errorf("got %d outcomes for empty batch, want 0", len(got))
	}
}
