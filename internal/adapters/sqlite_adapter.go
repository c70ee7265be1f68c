package adapters

import (
	"context"

	"qboard/internal/core"
	"qboard/internal/services"
	"qboard/internal/storage"
	"qboard/internal/tracker"
)

// SQLiteAdapter adapts SQLiteRepository and TargetService to the tracker
// ports. Reads go straight to storage; writes go through the service so each
// mutation publishes a change message for the mirror pipeline.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.TargetService
}

// Ensure interface conformance
var (
	_ tracker.RecordLister  = (*SQLiteAdapter)(nil)
	_ tracker.RecentLister  = (*SQLiteAdapter)(nil)
	_ tracker.RecordWriter  = (*SQLiteAdapter)(nil)
	_ tracker.RecordUpdater = (*SQLiteAdapter)(nil)
	_ tracker.RecordDeleter = (*SQLiteAdapter)(nil)
	_ tracker.RosterReader  = (*SQLiteAdapter)(nil)
)

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.TargetService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) ListRecords(ctx context.Context, kind core.EntityKind, f tracker.ListFilter) ([]core.Record, error) {
	return a.storage.ListRecords(ctx, kind, f)
}

func (a *SQLiteAdapter) ListRecent(ctx context.Context, limit int) ([]core.Record, error) {
	return a.storage.ListRecent(ctx, limit)
}

func (a *SQLiteAdapter) AddRecord(ctx context.Context, r core.Record) (int64, error) {
	return a.service.AddTarget(ctx, r)
}

func (a *SQLiteAdapter) UpdateRecord(ctx context.Context, r core.Record) error {
	return a.service.UpdateTarget(ctx, r)
}

// DeleteRecord looks the record up first so the delete message can carry the
// entity and period for the mirror.
func (a *SQLiteAdapter) DeleteRecord(ctx context.Context, kind core.EntityKind, id int64) error {
	rec, err := a.storage.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	return a.service.DeleteTarget(ctx, kind, id, rec.EntityID, rec.Period)
}

func (a *SQLiteAdapter) ListRoster(ctx context.Context, kind core.EntityKind) ([]core.Entity, error) {
	return a.storage.ListRoster(ctx, kind)
}
