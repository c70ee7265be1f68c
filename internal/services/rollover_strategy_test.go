package services

import (
	"testing"

	"qboard/internal/core"
)

func prevRecord() core.Record {
	return core.Record{
		ID:       9,
		EntityID: 4,
		Kind:     core.KindProject,
		Period:   core.Period{Month: 4, Year: 2025},
		Metrics: core.Metrics{
			Target:      150,
			Achieved:    140,
			Pending:     10,
			ExtraHours:  3,
			WorkingDays: 22,
		},
	}
}

func TestCarryTargetStrategy(t *testing.T) {
	next := core.Period{Month: 5, Year: 2025}
	got, ok := CarryTargetStrategy{}.NextRecord(prevRecord(), next)
	if !ok {
		t.Fatal("expected a record")
	}
	if got.ID != 0 {
		t.Errorf("ID = %d, want 0 (new record)", got.ID)
	}
	if got.Period != next {
		t.Errorf("Period = %v, want %v", got.Period, next)
	}
	if got.Metrics.Target != 150 || got.Metrics.WorkingDays != 22 {
		t.Errorf("target/days not carried: %+v", got.Metrics)
	}
	if got.Metrics.Achieved != 0 || got.Metrics.Pending != 0 || got.Metrics.ExtraHours != 0 {
		t.Errorf("progress counters not zeroed: %+v", got.Metrics)
	}
}

func TestCarryAllStrategy(t *testing.T) {
	prev := prevRecord()
	got, ok := CarryAllStrategy{}.NextRecord(prev, core.Period{Month: 5, Year: 2025})
	if !ok {
		t.Fatal("expected a record")
	}
	if got.Metrics != prev.Metrics {
		t.Errorf("Metrics = %+v, want %+v", got.Metrics, prev.Metrics)
	}
}

func TestSkipStrategy(t *testing.T) {
	if _, ok := (SkipStrategy{}).NextRecord(prevRecord(), core.Period{Month: 5, Year: 2025}); ok {
		t.Error("skip strategy must not produce a record")
	}
}

func TestGetRolloverStrategy(t *testing.T) {
	for _, mode := range []RolloverMode{RolloverCarryTarget, RolloverCarryAll, RolloverSkip} {
		if _, err := GetRolloverStrategy(mode); err != nil {
			t.Errorf("GetRolloverStrategy(%q) error = %v", mode, err)
		}
	}
	if _, err := GetRolloverStrategy("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

type doubleTargetStrategy struct{}

func (doubleTargetStrategy) NextRecord(prev core.Record, next core.Period) (core.Record, bool) {
	r, _ := CarryTargetStrategy{}.NextRecord(prev, next)
	r.Metrics.Target *= 2
	return r, true
}

func TestRegisterRolloverStrategy(t *testing.T) {
	RegisterRolloverStrategy("double", doubleTargetStrategy{})
	s, err := GetRolloverStrategy("double")
	if err != nil {
		t.Fatalf("GetRolloverStrategy() error = %v", err)
	}
	got, _ := s.NextRecord(prevRecord(), core.Period{Month: 5, Year: 2025})
	if got.Metrics.Target != 300 {
		t.Errorf("Target = %v, want 300", got.Metrics.Target)
	}
}
