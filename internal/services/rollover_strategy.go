// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for month rollover. Each mode
// encapsulates how a previous period's record seeds the next period.
package services

import (
	"fmt"

	"qboard/internal/core"
)

// RolloverMode names a rollover behavior.
type RolloverMode string

const (
	// RolloverCarryTarget copies the target and working days into the new
	// period and zeroes the progress counters.
	RolloverCarryTarget RolloverMode = "carry-target"

	// RolloverCarryAll copies the full metrics block unchanged.
	RolloverCarryAll RolloverMode = "carry-all"

	// RolloverSkip disables automatic seeding.
	RolloverSkip RolloverMode = "skip"
)

// RolloverStrategy decides what record, if any, a previous period's record
// seeds for the next period.
type RolloverStrategy interface {
	// NextRecord returns the record to create for the next period. The second
	// return is false when nothing should be created.
	NextRecord(prev core.Record, next core.Period) (core.Record, bool)
}

// CarryTargetStrategy implements RolloverStrategy for RolloverCarryTarget.
type CarryTargetStrategy struct{}

func (CarryTargetStrategy) NextRecord(prev core.Record, next core.Period) (core.Record, bool) {
	return core.Record{
		EntityID: prev.EntityID,
		Kind:     prev.Kind,
		Period:   next,
		Metrics: core.Metrics{
			Target:      prev.Metrics.Target,
			WorkingDays: prev.Metrics.WorkingDays,
		},
	}, true
}

// CarryAllStrategy implements RolloverStrategy for RolloverCarryAll.
type CarryAllStrategy struct{}

func (CarryAllStrategy) NextRecord(prev core.Record, next core.Period) (core.Record, bool) {
	return core.Record{
		EntityID: prev.EntityID,
		Kind:     prev.Kind,
		Period:   next,
		Metrics:  prev.Metrics,
	}, true
}

// SkipStrategy implements RolloverStrategy for RolloverSkip.
type SkipStrategy struct{}

func (SkipStrategy) NextRecord(core.Record, core.Period) (core.Record, bool) {
	return core.Record{}, false
}

// rolloverStrategies maps modes to their strategies. The registry enables
// O(1) lookup and extension without touching the processor.
var rolloverStrategies = map[RolloverMode]RolloverStrategy{
	RolloverCarryTarget: CarryTargetStrategy{},
	RolloverCarryAll:    CarryAllStrategy{},
	RolloverSkip:        SkipStrategy{},
}

// GetRolloverStrategy returns the strategy for a mode.
func GetRolloverStrategy(mode RolloverMode) (RolloverStrategy, error) {
	s, ok := rolloverStrategies[mode]
	if !ok {
		return nil, fmt.Errorf("unknown rollover mode: %s", mode)
	}
	return s, nil
}

// RegisterRolloverStrategy registers a custom strategy for a new mode.
func RegisterRolloverStrategy(mode RolloverMode, s RolloverStrategy) {
	rolloverStrategies[mode] = s
}
