package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"qboard/internal/core"
	"qboard/internal/services"
)

// rowView is one rendered table row: the record joined with its roster
// entity and the mode the row should render in.
type rowView struct {
	Entity core.Entity
	Record core.Record
	Mode   string
}

// tableData feeds the grouped table partial.
type tableData struct {
	Kind       core.EntityKind
	ReportName string
	Period     core.Period
	Periods    []core.Period
	Query      string
	Group      string
	Rows       []rowView
	Totals     core.Totals
	CanEdit    bool
	Bulk       bool
}

func (s *Server) handleTargetsTable(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKindParam(r)
	if !ok {
		NotFoundError("Unknown report").Write(w)
		return
	}
	period, err := parsePeriodParam(r)
	if err != nil {
		BadRequestError("Invalid period: " + err.Error()).Write(w)
		return
	}
	query := sanitizeInput(r.URL.Query().Get("q"))
	group := sanitizeInput(r.URL.Query().Get("group"))

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	roster, records, err := s.fetchReportData(ctx, kind, group)
	if err != nil {
		s.logger.ErrorContext(ctx, "loading report data", "kind", kind, "error", err)
		InternalServerError("Could not load data from the backend").
			TriggerErrorNotification("Could not load data, try refreshing").
			Write(w)
		return
	}

	view := core.BuildView(records, roster, period, core.ViewOptions{GroupFilter: group})
	rows := view.FilterRows(period, roster, query)
	totals := core.ComputeTotals(rows)

	table := core.NewTable(rows, r.URL.Query().Get("bulk") == "1")
	applyRowModeParams(table, r, period)

	names := make(map[int64]core.Entity, len(roster))
	for _, e := range roster {
		names[e.ID] = e
	}
	rowViews := make([]rowView, 0, len(rows))
	for _, rec := range rows {
		entity := names[rec.EntityID]
		if entity.ID == 0 {
			entity = core.Entity{ID: rec.EntityID, Kind: kind, DisplayName: "-"}
		}
		rowViews = append(rowViews, rowView{
			Entity: entity,
			Record: rec,
			Mode:   table.Mode(rec.Key()).String(),
		})
	}

	data := tableData{
		Kind:       kind,
		ReportName: kind.ReportName(),
		Period:     period,
		Periods:    view.Periods,
		Query:      query,
		Group:      group,
		Rows:       rowViews,
		Totals:     totals,
		CanEdit:    s.session.CanEdit(),
		Bulk:       r.URL.Query().Get("bulk") == "1",
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "targets_table.html", data); err != nil {
		s.logger.ErrorContext(ctx, "rendering targets table", "kind", kind, "error", err)
	}
}

// applyRowModeParams switches one row into edit or add mode when requested
// via the edit/add query parameters. Invalid transitions are ignored; the
// row simply renders in its resting mode.
func applyRowModeParams(table *core.Table, r *http.Request, period core.Period) {
	if raw := r.URL.Query().Get("edit"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			_ = table.BeginEdit(core.RowKey{EntityID: id, Period: period})
		}
	}
	if raw := r.URL.Query().Get("add"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			_ = table.BeginAdd(core.RowKey{EntityID: id, Period: period})
		}
	}
}

func (s *Server) requireEditor(w http.ResponseWriter) bool {
	if !s.session.CanEdit() {
		ForbiddenError("Your role does not allow editing").
			TriggerErrorNotification("Read-only session").
			Write(w)
		return false
	}
	return true
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKindParam(r)
	if !ok {
		NotFoundError("Unknown report").Write(w)
		return
	}
	if !s.requireEditor(w) {
		return
	}

	params, err := NewRequestBodyParser(r).ParseRecordParams()
	if err != nil {
		BadRequestError(err.Error()).
			TriggerErrorNotification(err.Error()).
			Write(w)
		return
	}
	rec := params.Record(kind)
	if err := rec.Validate(); err != nil {
		// Rejected before any backend round trip.
		UnprocessableEntityError(err.Error()).
			TriggerErrorNotification(validationMessage(err)).
			Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	if err := s.guardDuplicate(ctx, rec); err != nil {
		s.writeConflict(w, kind)
		return
	}

	id, err := s.targets.AddTarget(ctx, rec)
	if err != nil {
		s.writeMutationError(ctx, w, kind, "add", err)
		return
	}
	rec.ID = id

	s.invalidateKind(kind)
	s.logger.InfoContext(ctx, "target added",
		"kind", kind, "entity_id", rec.EntityID, "record_id", id, "period", rec.Period.String())

	NewHTMXResponse().
		TriggerRecordCreated(kind, rec.Period).
		TriggerTargetsRefresh(kind).
		TriggerFormReset().
		TriggerSuccessNotification("Target saved").
		Write(w)
}

// guardDuplicate runs the client-side duplicate check backing an add: if a
// persisted record is already loaded for the key, the save never reaches the
// backend. Best effort; the backend conflict response stays authoritative.
func (s *Server) guardDuplicate(ctx context.Context, rec core.Record) error {
	records, err := s.fetchRecords(ctx, rec.Kind, "")
	if err != nil {
		// Guard is advisory only, the write path reports its own errors.
		return nil
	}
	table := core.NewTable(markPersisted(records), false)
	return table.GuardAdd(rec.Key())
}

func markPersisted(records []core.Record) []core.Record {
	out := make([]core.Record, len(records))
	for i, r := range records {
		r.Persisted = true
		out[i] = r
	}
	return out
}

func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKindParam(r)
	if !ok {
		NotFoundError("Unknown report").Write(w)
		return
	}
	if !s.requireEditor(w) {
		return
	}

	params, err := NewRequestBodyParser(r).ParseRecordParams()
	if err != nil {
		BadRequestError(err.Error()).
			TriggerErrorNotification(err.Error()).
			Write(w)
		return
	}
	if params.ID <= 0 {
		BadRequestError("Record id is required for an update").Write(w)
		return
	}
	rec := params.Record(kind)
	if err := rec.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).
			TriggerErrorNotification(validationMessage(err)).
			Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	if err := s.targets.UpdateTarget(ctx, rec); err != nil {
		s.writeMutationError(ctx, w, kind, "update", err)
		return
	}

	s.invalidateKind(kind)
	s.logger.InfoContext(ctx, "target updated",
		"kind", kind, "record_id", rec.ID, "period", rec.Period.String())

	NewHTMXResponse().
		TriggerRecordUpdated(kind, rec.Period).
		TriggerTargetsRefresh(kind).
		TriggerSuccessNotification("Target updated").
		Write(w)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKindParam(r)
	if !ok {
		NotFoundError("Unknown report").Write(w)
		return
	}
	if !s.requireEditor(w) {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("id")), 10, 64)
	if err != nil || id <= 0 {
		BadRequestError("A valid record id is required").Write(w)
		return
	}
	entityID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("entity_id")), 10, 64)
	period, err := core.ParsePeriod(strings.TrimSpace(r.FormValue("period")))
	if err != nil {
		BadRequestError("Invalid period: " + err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	if err := s.targets.DeleteTarget(ctx, kind, id, entityID, period); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Already gone; refresh so the table converges.
			s.invalidateKind(kind)
			NewHTMXResponse().
				TriggerTargetsRefresh(kind).
				TriggerWarningNotification("Record was already removed").
				Write(w)
			return
		}
		s.writeMutationError(ctx, w, kind, "delete", err)
		return
	}

	s.invalidateKind(kind)
	s.logger.InfoContext(ctx, "target deleted",
		"kind", kind, "record_id", id, "period", period.String())

	NewHTMXResponse().
		TriggerRecordDeleted(kind, period).
		TriggerTargetsRefresh(kind).
		TriggerSuccessNotification("Target deleted").
		Write(w)
}

// handleBulkSubmit saves every pending add draft of a period in one request.
// Each row is submitted independently and sequentially; one failure never
// blocks the rows after it.
func (s *Server) handleBulkSubmit(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKindParam(r)
	if !ok {
		NotFoundError("Unknown report").Write(w)
		return
	}
	if !s.requireEditor(w) {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	period, err := core.ParsePeriod(strings.TrimSpace(r.FormValue("period")))
	if err != nil {
		BadRequestError("Invalid period: " + err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	roster, records, err := s.fetchReportData(ctx, kind, "")
	if err != nil {
		InternalServerError("Could not load data from the backend").
			TriggerErrorNotification("Could not load data, try refreshing").
			Write(w)
		return
	}

	view := core.BuildView(records, roster, period, core.ViewOptions{})
	table := core.NewTable(view.Rows[period], true)

	drafts, parseErrs := collectBulkDrafts(r, table, period)
	if len(drafts) == 0 && len(parseErrs) == 0 {
		UnprocessableEntityError("Nothing to submit").
			TriggerWarningNotification("No rows to submit").
			Write(w)
		return
	}

	recs := make([]core.Record, 0, len(drafts))
	for _, k := range drafts {
		m, err := table.Draft(k)
		if err != nil {
			continue
		}
		recs = append(recs, core.Record{
			Kind:     kind,
			EntityID: k.EntityID,
			Period:   k.Period,
			Metrics:  m,
		})
	}

	outcomes := s.targets.BulkSubmit(ctx, recs)
	saved, conflicts, invalid, failed := 0, 0, 0, len(parseErrs)
	for _, o := range outcomes {
		switch o.Status {
		case services.SubmitSaved:
			saved++
			rec := o.Record
			rec.ID = o.ID
			_ = table.CommitAdd(rec.Key(), rec)
		case services.SubmitConflict:
			conflicts++
		case services.SubmitInvalid:
			invalid++
		default:
			failed++
		}
	}

	if saved > 0 {
		s.invalidateKind(kind)
	}
	s.logger.InfoContext(ctx, "bulk submit finished",
		"kind", kind, "period", period.String(),
		"saved", saved, "conflicts", conflicts, "invalid", invalid, "failed", failed)

	resp := NewHTMXResponse().TriggerTargetsRefresh(kind)
	summary := bulkSummary(saved, conflicts, invalid, failed)
	switch {
	case saved > 0 && conflicts+invalid+failed == 0:
		resp.TriggerRecordCreated(kind, period).TriggerSuccessNotification(summary)
	case saved > 0:
		resp.TriggerRecordCreated(kind, period).TriggerWarningNotification(summary)
	default:
		resp.Status(http.StatusUnprocessableEntity).TriggerErrorNotification(summary)
	}
	resp.Write(w)
}

// collectBulkDrafts reads the parallel form arrays of a bulk submission into
// table drafts. A row whose metrics fail to parse is skipped and counted as
// an error; an apply_all source copies its draft into every other pending row.
func collectBulkDrafts(r *http.Request, table *core.Table, period core.Period) ([]core.RowKey, []error) {
	entityIDs := r.Form["entity_id"]
	var errs []error

	field := func(name string, i int) string {
		values := r.Form[name]
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	for i, raw := range entityIDs {
		entityID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: invalid entity id %q", i, raw))
			continue
		}
		key := core.RowKey{EntityID: entityID, Period: period}
		if err := table.BeginAdd(key); err != nil {
			// Persisted rows stay untouched.
			continue
		}

		var m core.Metrics
		var parseErr error
		if m.Target, parseErr = parseMetric(field("target", i)); parseErr == nil {
			if m.Achieved, parseErr = parseMetric(field("achieved", i)); parseErr == nil {
				if m.Pending, parseErr = parseMetric(field("pending", i)); parseErr == nil {
					m.ExtraHours, parseErr = parseMetric(field("extra_hours", i))
				}
			}
		}
		if parseErr == nil {
			if raw := strings.TrimSpace(field("working_days", i)); raw != "" {
				m.WorkingDays, parseErr = strconv.Atoi(raw)
			}
		}
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, parseErr))
			table.Cancel(key)
			continue
		}
		_ = table.SetDraft(key, m)
	}

	if raw := strings.TrimSpace(r.FormValue("apply_all")); raw != "" {
		if srcID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			_ = table.ApplyToAll(core.RowKey{EntityID: srcID, Period: period})
		}
	}

	return table.Drafts(), errs
}

func bulkSummary(saved, conflicts, invalid, failed int) string {
	parts := []string{fmt.Sprintf("%d saved", saved)}
	if conflicts > 0 {
		parts = append(parts, fmt.Sprintf("%d already existed", conflicts))
	}
	if invalid > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid", invalid))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	return strings.Join(parts, ", ")
}

func (s *Server) writeConflict(w http.ResponseWriter, kind core.EntityKind) {
	// The table re-fetches on the refresh trigger so the winning record
	// becomes visible without further input.
	ConflictError("A record already exists for this entity and period").
		TriggerTargetsRefresh(kind).
		TriggerWarningNotification("Record already exists, showing the current value").
		Write(w)
}

// writeMutationError maps a service failure onto the response taxonomy:
// conflicts get 409 with a refresh, validation failures 422, not found 404,
// everything else surfaces once as a network error.
func (s *Server) writeMutationError(ctx context.Context, w http.ResponseWriter, kind core.EntityKind, op string, err error) {
	switch {
	case errors.Is(err, core.ErrConflict):
		s.invalidateKind(kind)
		s.writeConflict(w, kind)
	case errors.Is(err, core.ErrNotFound):
		s.invalidateKind(kind)
		NotFoundError("Record not found").
			TriggerTargetsRefresh(kind).
			TriggerWarningNotification("Record no longer exists").
			Write(w)
	case isValidationSentinel(err):
		UnprocessableEntityError(err.Error()).
			TriggerErrorNotification(validationMessage(err)).
			Write(w)
	default:
		s.logger.ErrorContext(ctx, "target mutation failed", "kind", kind, "op", op, "error", err)
		InternalServerError("The backend did not accept the change").
			TriggerErrorNotification("Save failed, check your connection and retry").
			Write(w)
	}
}

func isValidationSentinel(err error) bool {
	for _, sentinel := range []error{
		core.ErrMissingTarget, core.ErrNegativeMetric, core.ErrInvalidDays,
		core.ErrInvalidMonth, core.ErrInvalidYear, core.ErrEmptyEntity,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// validationMessage renders a sentinel as an operator-facing message.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingTarget):
		return "Target is required and must be positive"
	case errors.Is(err, core.ErrNegativeMetric):
		return "Metric values cannot be negative"
	case errors.Is(err, core.ErrInvalidDays):
		return "Working days must be between 0 and 31"
	case errors.Is(err, core.ErrEmptyEntity):
		return "Pick an entity first"
	default:
		return err.Error()
	}
}
