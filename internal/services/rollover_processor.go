package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qboard/internal/core"
	"qboard/internal/tracker"
)

// RolloverProcessor seeds a new month's records from the previous month. An
// entity with a record last period and none this period gets one created by
// the configured strategy.
type RolloverProcessor struct {
	lister   tracker.RecordLister
	targets  *TargetService
	strategy RolloverStrategy
}

func NewRolloverProcessor(lister tracker.RecordLister, targets *TargetService, strategy RolloverStrategy) *RolloverProcessor {
	return &RolloverProcessor{
		lister:   lister,
		targets:  targets,
		strategy: strategy,
	}
}

// ProcessRollover seeds both report kinds for the period containing now.
// Returns how many records were created. Re-runs are safe: entities already
// seeded are skipped, and a concurrent seed surfaces as a conflict which is
// treated as already done.
func (p *RolloverProcessor) ProcessRollover(ctx context.Context, now time.Time) (int, error) {
	if p.lister == nil || p.targets == nil || p.strategy == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	current := core.PeriodOf(now)
	previous := current.Previous()

	created := 0
	for _, kind := range []core.EntityKind{core.KindUser, core.KindProject} {
		n, err := p.rolloverKind(ctx, kind, previous, current)
		if err != nil {
			return created, fmt.Errorf("rollover %s: %w", kind, err)
		}
		created += n
	}

	slog.InfoContext(ctx, "Rollover complete",
		"period", current.String(),
		"created", created)

	return created, nil
}

func (p *RolloverProcessor) rolloverKind(ctx context.Context, kind core.EntityKind, previous, current core.Period) (int, error) {
	prevRecords, err := p.lister.ListRecords(ctx, kind, tracker.ListFilter{Period: previous})
	if err != nil {
		return 0, fmt.Errorf("list %s records: %w", previous, err)
	}

	currRecords, err := p.lister.ListRecords(ctx, kind, tracker.ListFilter{Period: current})
	if err != nil {
		return 0, fmt.Errorf("list %s records: %w", current, err)
	}
	seeded := make(map[int64]bool, len(currRecords))
	for _, r := range currRecords {
		seeded[r.EntityID] = true
	}

	slog.InfoContext(ctx, "Processing rollover",
		"kind", kind,
		"from", previous.String(),
		"to", current.String(),
		"candidates", len(prevRecords))

	created := 0
	for _, prev := range prevRecords {
		if seeded[prev.EntityID] {
			continue
		}

		next, ok := p.strategy.NextRecord(prev, current)
		if !ok {
			continue
		}

		id, err := p.targets.AddTarget(ctx, next)
		if err != nil {
			if errors.Is(err, core.ErrConflict) {
				// Seeded by a concurrent run or by hand since we listed.
				continue
			}
			slog.ErrorContext(ctx, "Failed to seed record from previous period",
				"kind", kind,
				"entity_id", prev.EntityID,
				"period", current.String(),
				"error", err)
			continue
		}

		created++
		slog.InfoContext(ctx, "Seeded record from previous period",
			"kind", kind,
			"entity_id", prev.EntityID,
			"record_id", id,
			"target", next.Metrics.Target)
	}

	return created, nil
}
