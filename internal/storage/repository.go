package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qboard/internal/core"
	"qboard/internal/tracker"

	_ "modernc.org/sqlite"
)

// MirrorStatus values tracked per record for the report mirror queue.
const (
	MirrorPending = "pending"
	MirrorDone    = "done"
	MirrorError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ tracker.RecordLister  = (*SQLiteRepository)(nil)
	_ tracker.RecentLister  = (*SQLiteRepository)(nil)
	_ tracker.RecordWriter  = (*SQLiteRepository)(nil)
	_ tracker.RecordUpdater = (*SQLiteRepository)(nil)
	_ tracker.RecordDeleter = (*SQLiteRepository)(nil)
	_ tracker.RosterReader  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddRecord implements tracker.RecordWriter. The unique (entity, period)
// index is the conflict authority.
func (r *SQLiteRepository) AddRecord(ctx context.Context, rec core.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO records (entity_id, entity_kind, month, year, target, achieved, pending, extra_hours, working_days, mirror_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EntityID, string(rec.Kind), rec.Period.Month, rec.Period.Year,
		rec.Metrics.Target, rec.Metrics.Achieved, rec.Metrics.Pending,
		rec.Metrics.ExtraHours, rec.Metrics.WorkingDays, MirrorPending,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("add record entity=%d period=%s: %w", rec.EntityID, rec.Period, core.ErrConflict)
		}
		return 0, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", id,
		"entity_id", rec.EntityID,
		"entity_kind", rec.Kind.String(),
		"period", rec.Period.String(),
		"target", rec.Metrics.Target)

	return id, nil
}

// UpdateRecord implements tracker.RecordUpdater and re-queues the row for
// mirroring.
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec core.Record) error {
	if rec.ID <= 0 {
		return core.ErrNotFound
	}
	if err := rec.Metrics.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET target = ?, achieved = ?, pending = ?, extra_hours = ?, working_days = ?,
		    mirror_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND entity_kind = ?`,
		rec.Metrics.Target, rec.Metrics.Achieved, rec.Metrics.Pending,
		rec.Metrics.ExtraHours, rec.Metrics.WorkingDays, MirrorPending,
		rec.ID, string(rec.Kind),
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update record id=%d: %w", rec.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteRecord implements tracker.RecordDeleter.
func (r *SQLiteRepository) DeleteRecord(ctx context.Context, kind core.EntityKind, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ? AND entity_kind = ?`, id, string(kind))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete record id=%d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Record deleted from SQLite", "id", id, "entity_kind", kind.String())
	return nil
}

// ListRecords implements tracker.RecordLister.
func (r *SQLiteRepository) ListRecords(ctx context.Context, kind core.EntityKind, f tracker.ListFilter) ([]core.Record, error) {
	query := `
		SELECT id, entity_id, entity_kind, month, year, target, achieved, pending, extra_hours, working_days
		FROM records WHERE entity_kind = ?`
	args := []any{string(kind)}
	if !f.Period.IsZero() {
		query += ` AND month = ? AND year = ?`
		args = append(args, f.Period.Month, f.Period.Year)
	}
	query += ` ORDER BY year DESC, month DESC, entity_id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRecent implements tracker.RecentLister, newest rows first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]core.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_id, entity_kind, month, year, target, achieved, pending, extra_hours, working_days
		FROM records ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRoster implements tracker.RosterReader, preserving configured order.
func (r *SQLiteRepository) ListRoster(ctx context.Context, kind core.EntityKind) ([]core.Entity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, display_name, group_name
		FROM roster WHERE kind = ? ORDER BY position ASC, id ASC`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var out []core.Entity
	for rows.Next() {
		var e core.Entity
		var kindStr string
		if err := rows.Scan(&e.ID, &kindStr, &e.DisplayName, &e.GroupName); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		e.Kind = core.EntityKind(kindStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SeedRoster inserts roster entities when the table is empty. Used by
// standalone deployments to bootstrap from config.
func (r *SQLiteRepository) SeedRoster(ctx context.Context, entities []core.Entity) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roster`).Scan(&count); err != nil {
		return fmt.Errorf("count roster: %w", err)
	}
	if count > 0 {
		return nil
	}
	for i, e := range entities {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO roster (kind, display_name, group_name, position) VALUES (?, ?, ?, ?)`,
			string(e.Kind), e.DisplayName, e.GroupName, i,
		); err != nil {
			return fmt.Errorf("seed roster %q: %w", e.DisplayName, err)
		}
	}
	slog.InfoContext(ctx, "Seeded roster", "count", len(entities))
	return nil
}

// PendingMirrorRecord is the minimal row shape queued for report mirroring.
type PendingMirrorRecord struct {
	Record    core.Record
	CreatedAt time.Time
}

// ListPendingMirror returns records awaiting a mirror push, oldest first.
func (r *SQLiteRepository) ListPendingMirror(ctx context.Context, limit int) ([]PendingMirrorRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_id, entity_kind, month, year, target, achieved, pending, extra_hours, working_days, created_at
		FROM records WHERE mirror_status = ? ORDER BY updated_at ASC LIMIT ?`, MirrorPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending mirror records: %w", err)
	}
	defer rows.Close()

	var out []PendingMirrorRecord
	for rows.Next() {
		var p PendingMirrorRecord
		var kindStr string
		if err := rows.Scan(
			&p.Record.ID, &p.Record.EntityID, &kindStr,
			&p.Record.Period.Month, &p.Record.Period.Year,
			&p.Record.Metrics.Target, &p.Record.Metrics.Achieved, &p.Record.Metrics.Pending,
			&p.Record.Metrics.ExtraHours, &p.Record.Metrics.WorkingDays, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending mirror row: %w", err)
		}
		p.Record.Kind = core.EntityKind(kindStr)
		p.Record.Persisted = true
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetRecord fetches one record by id, any kind.
func (r *SQLiteRepository) GetRecord(ctx context.Context, id int64) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, entity_id, entity_kind, month, year, target, achieved, pending, extra_hours, working_days
		FROM records WHERE id = ?`, id)

	var rec core.Record
	var kindStr string
	err := row.Scan(
		&rec.ID, &rec.EntityID, &kindStr,
		&rec.Period.Month, &rec.Period.Year,
		&rec.Metrics.Target, &rec.Metrics.Achieved, &rec.Metrics.Pending,
		&rec.Metrics.ExtraHours, &rec.Metrics.WorkingDays,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, fmt.Errorf("get record id=%d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record: %w", err)
	}
	rec.Kind = core.EntityKind(kindStr)
	rec.Persisted = true
	return rec, nil
}

// MarkMirrored flags a record as pushed to the mirror report.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET mirror_status = ? WHERE id = ?`, MirrorDone, id); err != nil {
		return fmt.Errorf("mark record mirrored: %w", err)
	}
	slog.InfoContext(ctx, "Record marked as mirrored", "id", id)
	return nil
}

// MarkMirrorError flags a record whose mirror push failed.
func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET mirror_status = ? WHERE id = ?`, MirrorError, id); err != nil {
		return fmt.Errorf("mark record mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Record marked with mirror error", "id", id)
	return nil
}

// RequeueMirrorErrors moves errored rows back to pending for the next cycle.
func (r *SQLiteRepository) RequeueMirrorErrors(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET mirror_status = ? WHERE mirror_status = ?`, MirrorPending, MirrorError); err != nil {
		return fmt.Errorf("requeue mirror errors: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]core.Record, error) {
	var out []core.Record
	for rows.Next() {
		var rec core.Record
		var kindStr string
		if err := rows.Scan(
			&rec.ID, &rec.EntityID, &kindStr,
			&rec.Period.Month, &rec.Period.Year,
			&rec.Metrics.Target, &rec.Metrics.Achieved, &rec.Metrics.Pending,
			&rec.Metrics.ExtraHours, &rec.Metrics.WorkingDays,
		); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec.Kind = core.EntityKind(kindStr)
		rec.Persisted = true
		out = append(out, rec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
