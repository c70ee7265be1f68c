package mirror

import (
	"context"

	"qboard/internal/core"
)

// Ports for outbound report mirrors.
type (
	// RecordAppender pushes one target record to the mirror, replacing any
	// previous row for the same record ID.
	RecordAppender interface {
		AppendRecord(ctx context.Context, r core.Record) (rowRef string, err error)
	}

	// RecordRemover drops a record's row from the mirror. Removing a record
	// that was never mirrored is not an error.
	RecordRemover interface {
		RemoveRecord(ctx context.Context, kind core.EntityKind, id int64) error
	}
)

// ReportMirror is the full mirror surface the sync worker drives.
type ReportMirror interface {
	RecordAppender
	RecordRemover
}
