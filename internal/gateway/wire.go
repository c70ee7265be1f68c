package gateway

import (
	"encoding/json"
	"fmt"

	"qboard/internal/core"
)

// envelope is the upstream API's fixed response shape.
type envelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type listRequest struct {
	LoggedInUserID int64  `json:"loggedInUserId"`
	Period         string `json:"period,omitempty"`
	GroupID        string `json:"groupId,omitempty"`
}

type recentRequest struct {
	LoggedInUserID int64 `json:"loggedInUserId"`
	Limit          int   `json:"limit"`
}

type metricsPayload struct {
	Target      float64 `json:"target"`
	Achieved    float64 `json:"achieved,omitempty"`
	Pending     float64 `json:"pending,omitempty"`
	ExtraHours  float64 `json:"extraHours,omitempty"`
	WorkingDays int     `json:"workingDays,omitempty"`
}

type mutationRequest struct {
	LoggedInUserID int64  `json:"loggedInUserId"`
	EntityID       int64  `json:"entityId,omitempty"`
	RecordID       int64  `json:"recordId,omitempty"`
	Period         string `json:"period,omitempty"`
	metricsPayload
}

type recordPayload struct {
	ID         int64  `json:"id"`
	EntityID   int64  `json:"entityId"`
	EntityKind string `json:"entityKind,omitempty"`
	Period     string `json:"period"`
	metricsPayload
}

type entityPayload struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	GroupName   string `json:"groupName,omitempty"`
}

func metricsOf(m core.Metrics) metricsPayload {
	return metricsPayload{
		Target:      m.Target,
		Achieved:    m.Achieved,
		Pending:     m.Pending,
		ExtraHours:  m.ExtraHours,
		WorkingDays: m.WorkingDays,
	}
}

func (p recordPayload) toRecord(kind core.EntityKind) (core.Record, error) {
	period, err := core.ParsePeriod(p.Period)
	if err != nil {
		return core.Record{}, fmt.Errorf("record %d: %w", p.ID, err)
	}
	return core.Record{
		ID:       p.ID,
		EntityID: p.EntityID,
		Kind:     kind,
		Period:   period,
		Metrics: core.Metrics{
			Target:      p.Target,
			Achieved:    p.Achieved,
			Pending:     p.Pending,
			ExtraHours:  p.ExtraHours,
			WorkingDays: p.WorkingDays,
		},
		Persisted: true,
	}, nil
}
