package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"qboard/internal/amqp"
	"qboard/internal/core"
	"qboard/internal/tracker"
)

// ChangePublisher publishes record change notifications for the mirror
// pipeline. Backends without a broker pass nil.
type ChangePublisher interface {
	PublishRecordChange(ctx context.Context, msg *amqp.RecordChangeMessage) error
}

// TargetService orchestrates target record mutations across the tracker
// backend and the change broker. Publishing is best effort: a record saved
// locally is never rolled back because the broker was unreachable.
type TargetService struct {
	writer    tracker.RecordWriter
	updater   tracker.RecordUpdater
	deleter   tracker.RecordDeleter
	publisher ChangePublisher
}

func NewTargetService(writer tracker.RecordWriter, updater tracker.RecordUpdater, deleter tracker.RecordDeleter, publisher ChangePublisher) *TargetService {
	return &TargetService{
		writer:    writer,
		updater:   updater,
		deleter:   deleter,
		publisher: publisher,
	}
}

// AddTarget validates and saves a new record, returning the assigned ID.
// core.ErrConflict passes through untouched so callers can branch on it.
func (s *TargetService) AddTarget(ctx context.Context, r core.Record) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	id, err := s.writer.AddRecord(ctx, r)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("save record: %w", err)
	}

	s.publish(ctx, amqp.NewUpsertMessage(id, string(r.Kind)))
	return id, nil
}

// UpdateTarget validates and overwrites an existing record.
func (s *TargetService) UpdateTarget(ctx context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID <= 0 {
		return fmt.Errorf("update record: missing id")
	}

	if err := s.updater.UpdateRecord(ctx, r); err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrConflict) {
			return err
		}
		return fmt.Errorf("update record: %w", err)
	}

	s.publish(ctx, amqp.NewUpsertMessage(r.ID, string(r.Kind)))
	return nil
}

// DeleteTarget removes a record. Entity and period ride along in the delete
// message so the mirror can locate the row without a storage lookup.
func (s *TargetService) DeleteTarget(ctx context.Context, kind core.EntityKind, id, entityID int64, period core.Period) error {
	if err := s.deleter.DeleteRecord(ctx, kind, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete record: %w", err)
	}

	s.publish(ctx, amqp.NewDeleteMessage(id, string(kind), entityID, period.String()))
	return nil
}

func (s *TargetService) publish(ctx context.Context, msg *amqp.RecordChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record change",
			"action", msg.Action,
			"id", msg.ID,
			"error", err)
	}
}

// SubmitStatus classifies the outcome of one row in a bulk submit.
type SubmitStatus string

const (
	SubmitSaved    SubmitStatus = "saved"
	SubmitConflict SubmitStatus = "conflict"
	SubmitInvalid  SubmitStatus = "invalid"
	SubmitFailed   SubmitStatus = "failed"
)

// SubmitOutcome is the per-row result of a bulk submit.
type SubmitOutcome struct {
	Record core.Record
	Status SubmitStatus
	ID     int64
	Err    error
}

// BulkSubmit saves each draft in order, one request per row. A failing row
// never stops the batch; every draft gets its own outcome.
func (s *TargetService) BulkSubmit(ctx context.Context, drafts []core.Record) []SubmitOutcome {
	outcomes := make([]SubmitOutcome, 0, len(drafts))

	for _, draft := range drafts {
		outcome := SubmitOutcome{Record: draft}

		id, err := s.AddTarget(ctx, draft)
		switch {
		case err == nil:
			outcome.Status = SubmitSaved
			outcome.ID = id
		case errors.Is(err, core.ErrConflict):
			outcome.Status = SubmitConflict
			outcome.Err = err
		case isValidationError(err):
			outcome.Status = SubmitInvalid
			outcome.Err = err
		default:
			outcome.Status = SubmitFailed
			outcome.Err = err
		}

		if outcome.Err != nil {
			slog.WarnContext(ctx, "Bulk submit row not saved",
				"entity_id", draft.EntityID,
				"period", draft.Period.String(),
				"status", outcome.Status,
				"error", outcome.Err)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrMissingTarget) ||
		errors.Is(err, core.ErrNegativeMetric) ||
		errors.Is(err, core.ErrInvalidDays) ||
		errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrInvalidYear) ||
		errors.Is(err, core.ErrEmptyEntity)
}
