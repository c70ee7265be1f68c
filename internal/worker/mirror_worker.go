package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"qboard/internal/amqp"
	"qboard/internal/core"
	applog "qboard/internal/log"
	"qboard/internal/mirror"
	"qboard/internal/storage"
)

// MirrorWorker pushes record changes from SQLite to the report mirror as
// change messages arrive from the broker.
type MirrorWorker struct {
	storage   *storage.SQLiteRepository
	mirror    mirror.ReportMirror
	batchSize int
}

func NewMirrorWorker(storage *storage.SQLiteRepository, m mirror.ReportMirror, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   storage,
		mirror:    m,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches a single record change message.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	switch msg.Action {
	case amqp.ActionUpsert:
		return w.handleUpsert(ctx, msg)
	case amqp.ActionDelete:
		return w.handleDelete(ctx, msg)
	default:
		return fmt.Errorf("unknown action: %s", msg.Action)
	}
}

func (w *MirrorWorker) handleUpsert(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	slog.InfoContext(ctx, "Processing upsert message", "id", msg.ID, "kind", msg.Kind)

	record, err := w.storage.GetRecord(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume. The delete message that
			// follows cleans up the mirror.
			slog.WarnContext(ctx, "Record gone before mirroring, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get record from storage: %w", err)
	}

	return w.mirrorRecord(ctx, record)
}

func (w *MirrorWorker) handleDelete(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"id", msg.ID,
		"kind", msg.Kind,
		"entity_id", msg.EntityID,
		"period", msg.Period)

	kind := core.EntityKind(msg.Kind)
	if !kind.IsValid() {
		// Undecodable payloads never succeed on retry.
		slog.ErrorContext(ctx, "Delete message with unknown kind, dropping", "kind", msg.Kind)
		return nil
	}

	if err := w.mirror.RemoveRecord(ctx, kind, msg.ID); err != nil {
		return fmt.Errorf("remove record from mirror: %w", err)
	}

	slog.InfoContext(ctx, "Removed record from mirror", "id", msg.ID, "kind", msg.Kind)
	return nil
}

// ProcessPending mirrors any records still in the pending state. This is a
// backup mechanism in case broker messages are lost.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingMirror(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending records: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, item := range pending {
		if err := w.mirrorRecord(ctx, item.Record); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending record",
				"id", item.Record.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck mirrors pending records left over from missed messages or
// worker downtime. Runs with a larger batch than the steady-state backup.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingMirror(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending records for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, item := range pending {
		if err := w.mirrorRecord(ctx, item.Record); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror record during startup",
				"id", item.Record.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup mirror check completed",
		"total", len(pending),
		"mirrored", successCount,
		"errors", errorCount)

	return nil
}

func (w *MirrorWorker) mirrorRecord(ctx context.Context, record core.Record) error {
	ref, err := w.mirror.AppendRecord(ctx, record)
	if err != nil {
		if markErr := w.storage.MarkMirrorError(ctx, record.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error", "id", record.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkMirrored(ctx, record.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as mirrored", "id", record.ID, "error", err)
		// The mirror push itself worked, keep going.
	}

	fields := applog.NewFields().
		WithComponent(applog.ComponentWorker).
		WithOperation(applog.OpAppend).
		WithRecord(record.Kind.String(), record.EntityID, record.ID, record.Period.String())
	fields[applog.FieldMirrorRef] = ref
	slog.InfoContext(ctx, "Mirrored record", fields.ToSlice()...)

	return nil
}
