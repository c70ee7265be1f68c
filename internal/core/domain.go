package core

import (
	"errors"
	"strings"
)

const (
	KindUser    EntityKind = "user"
	KindProject EntityKind = "project"
)

type (
	// EntityKind distinguishes the two monthly report screens.
	EntityKind string

	// Entity is a roster member: a user or a project eligible for a report.
	// The roster is immutable for the session once fetched.
	Entity struct {
		ID          int64
		Kind        EntityKind
		DisplayName string
		GroupName   string // optional team/group scope
	}

	// Metrics holds the editable numeric columns of a target row.
	Metrics struct {
		Target      float64
		Achieved    float64
		Pending     float64
		ExtraHours  float64
		WorkingDays int
	}

	// Record is one entity's row for one period. A record without an ID is a
	// roster placeholder that has no backend row yet; the ID assigned on add
	// is the only valid key for update and delete.
	Record struct {
		ID        int64
		EntityID  int64
		Kind      EntityKind
		Period    Period
		Metrics   Metrics
		Persisted bool
	}
)

var (
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidYear    = errors.New("invalid year")
	ErrMissingTarget  = errors.New("target is required")
	ErrNegativeMetric = errors.New("metric values cannot be negative")
	ErrInvalidDays    = errors.New("working days out of range")
	ErrEmptyEntity    = errors.New("missing entity")
	ErrConflict       = errors.New("record already exists for entity and period")
	ErrNotFound       = errors.New("record not found")
	ErrEmptyExport    = errors.New("nothing to export")
)

func (k EntityKind) IsValid() bool {
	switch k {
	case KindUser, KindProject:
		return true
	default:
		return false
	}
}

func (k EntityKind) String() string {
	return string(k)
}

// ReportName is the label used for export filenames and screen titles.
func (k EntityKind) ReportName() string {
	switch k {
	case KindUser:
		return "UserTargets"
	case KindProject:
		return "ProjectTargets"
	default:
		return "Targets"
	}
}

func (e Entity) Validate() error {
	if e.ID <= 0 {
		return ErrEmptyEntity
	}
	if strings.TrimSpace(e.DisplayName) == "" {
		return errors.New("empty display name")
	}
	if !e.Kind.IsValid() {
		return errors.New("invalid entity kind")
	}
	return nil
}

func (m Metrics) Validate() error {
	if m.Target <= 0 {
		return ErrMissingTarget
	}
	if m.Achieved < 0 || m.Pending < 0 || m.ExtraHours < 0 {
		return ErrNegativeMetric
	}
	if m.WorkingDays < 0 || m.WorkingDays > 31 {
		return ErrInvalidDays
	}
	return nil
}

func (r Record) Validate() error {
	if r.EntityID <= 0 {
		return ErrEmptyEntity
	}
	if !r.Kind.IsValid() {
		return errors.New("invalid entity kind")
	}
	if err := r.Period.Validate(); err != nil {
		return err
	}
	return r.Metrics.Validate()
}

// Key returns the row key identifying this record's grid cell.
func (r Record) Key() RowKey {
	return RowKey{EntityID: r.EntityID, Period: r.Period}
}

// Placeholder builds the synthetic row shown for a roster entity that has no
// backend record for the period yet.
func Placeholder(e Entity, p Period) Record {
	return Record{
		EntityID: e.ID,
		Kind:     e.Kind,
		Period:   p,
	}
}
