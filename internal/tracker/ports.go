package tracker

import (
	"context"

	"qboard/internal/core"
)

// ListFilter narrows a record listing. Zero values mean "all".
type ListFilter struct {
	Period core.Period // zero: every period
	Group  string      // roster group scope forwarded to the backend
}

// Ports for outbound adapters.
type (
	RecordLister interface {
		// ListRecords returns persisted records for a report kind, optionally
		// narrowed to one period and group scope.
		ListRecords(ctx context.Context, kind core.EntityKind, f ListFilter) ([]core.Record, error)
	}

	// RecentLister feeds the read-only overview tab.
	RecentLister interface {
		ListRecent(ctx context.Context, limit int) ([]core.Record, error)
	}

	RecordWriter interface {
		// AddRecord persists a new record and returns its assigned id.
		// A pre-existing record for the same (entity, period) surfaces as
		// core.ErrConflict.
		AddRecord(ctx context.Context, r core.Record) (int64, error)
	}

	RecordUpdater interface {
		UpdateRecord(ctx context.Context, r core.Record) error
	}

	RecordDeleter interface {
		DeleteRecord(ctx context.Context, kind core.EntityKind, id int64) error
	}

	RosterReader interface {
		ListRoster(ctx context.Context, kind core.EntityKind) ([]core.Entity, error)
	}
)
