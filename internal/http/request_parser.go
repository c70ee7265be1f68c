// This file implements request parsing helpers shared by the handlers.
// It centralizes form/JSON body handling and the record payload parsing
// rules so every mutation endpoint validates input the same way.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"qboard/internal/core"
)

// RecordParams holds the parsed fields of a target record form submission.
type RecordParams struct {
	ID          int64
	EntityID    int64
	Period      core.Period
	Target      float64
	Achieved    float64
	Pending     float64
	ExtraHours  float64
	WorkingDays int
}

// RequestBodyParser handles parsing of both JSON and form-encoded request bodies.
type RequestBodyParser struct {
	request *http.Request
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	return &RequestBodyParser{request: r}
}

// IsJSON returns true when the request carries a JSON body.
func (p *RequestBodyParser) IsJSON() bool {
	contentType := p.request.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/json")
}

// ParseForm parses the request body as form data, returning an error suitable
// for a 400 response on failure.
func (p *RequestBodyParser) ParseForm() error {
	if err := p.request.ParseForm(); err != nil {
		return fmt.Errorf("invalid form data: %w", err)
	}
	return nil
}

// DecodeJSON decodes the request body into dst.
func (p *RequestBodyParser) DecodeJSON(dst interface{}) error {
	if err := json.NewDecoder(p.request.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// recordPayload is the JSON shape accepted by the mutation endpoints.
type recordPayload struct {
	ID          int64   `json:"id"`
	EntityID    int64   `json:"entity_id"`
	Period      string  `json:"period"`
	Target      float64 `json:"target"`
	Achieved    float64 `json:"achieved"`
	Pending     float64 `json:"pending"`
	ExtraHours  float64 `json:"extra_hours"`
	WorkingDays int     `json:"working_days"`
}

// ParseRecordParams extracts record fields from either a JSON or a form body.
// Metric fields accept a decimal comma; empty metric fields read as zero.
func (p *RequestBodyParser) ParseRecordParams() (RecordParams, error) {
	if p.IsJSON() {
		var payload recordPayload
		if err := p.DecodeJSON(&payload); err != nil {
			return RecordParams{}, err
		}
		period, err := core.ParsePeriod(payload.Period)
		if err != nil {
			return RecordParams{}, err
		}
		return RecordParams{
			ID:          payload.ID,
			EntityID:    payload.EntityID,
			Period:      period,
			Target:      payload.Target,
			Achieved:    payload.Achieved,
			Pending:     payload.Pending,
			ExtraHours:  payload.ExtraHours,
			WorkingDays: payload.WorkingDays,
		}, nil
	}

	if err := p.ParseForm(); err != nil {
		return RecordParams{}, err
	}
	return parseRecordForm(p.request)
}

func parseRecordForm(r *http.Request) (RecordParams, error) {
	var params RecordParams
	var err error

	if raw := strings.TrimSpace(r.FormValue("id")); raw != "" {
		params.ID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return RecordParams{}, fmt.Errorf("invalid record id %q", raw)
		}
	}

	rawEntity := strings.TrimSpace(r.FormValue("entity_id"))
	if rawEntity == "" {
		return RecordParams{}, fmt.Errorf("entity is required")
	}
	params.EntityID, err = strconv.ParseInt(rawEntity, 10, 64)
	if err != nil {
		return RecordParams{}, fmt.Errorf("invalid entity id %q", rawEntity)
	}

	params.Period, err = core.ParsePeriod(strings.TrimSpace(r.FormValue("period")))
	if err != nil {
		return RecordParams{}, err
	}

	metrics := []struct {
		field string
		dst   *float64
	}{
		{"target", &params.Target},
		{"achieved", &params.Achieved},
		{"pending", &params.Pending},
		{"extra_hours", &params.ExtraHours},
	}
	for _, m := range metrics {
		*m.dst, err = parseMetric(r.FormValue(m.field))
		if err != nil {
			return RecordParams{}, fmt.Errorf("invalid %s value: %w", strings.ReplaceAll(m.field, "_", " "), err)
		}
	}

	if raw := strings.TrimSpace(r.FormValue("working_days")); raw != "" {
		params.WorkingDays, err = strconv.Atoi(raw)
		if err != nil {
			return RecordParams{}, fmt.Errorf("invalid working days %q", raw)
		}
	}

	return params, nil
}

// Record converts the parsed params into a domain record for the given kind.
func (p RecordParams) Record(kind core.EntityKind) core.Record {
	return core.Record{
		ID:       p.ID,
		Kind:     kind,
		EntityID: p.EntityID,
		Period:   p.Period,
		Metrics: core.Metrics{
			Target:      p.Target,
			Achieved:    p.Achieved,
			Pending:     p.Pending,
			ExtraHours:  p.ExtraHours,
			WorkingDays: p.WorkingDays,
		},
	}
}

// RequireMethod checks if the request uses the required HTTP method.
// Returns true if the method matches, writes a 405 and returns false otherwise.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		MethodNotAllowedError(method).Write(w)
		return false
	}
	return true
}

// RequirePOST is a convenience function for POST-only endpoints.
func RequirePOST(w http.ResponseWriter, r *http.Request) bool {
	return RequireMethod(w, r, http.MethodPost)
}
