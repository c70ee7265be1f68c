package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"qboard/internal/core"
	"qboard/internal/export"
)

// handleExport streams the current report as an xlsx workbook. The export
// honors the table's period and text filter; a filter that matches nobody is
// refused rather than producing an empty file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	roster, records, err := s.fetchReportData(ctx, kind, "")
	if err != nil {
		s.logger.ErrorContext(ctx, "loading export data", "kind", kind, "error", err)
		InternalServerError("Could not load data for the export").
			TriggerErrorNotification("Export failed, try again").
			Write(w)
		return
	}

	report, err := export.BuildReport(kind, period, filterRoster(roster, query), records)
	if err != nil {
		if errors.Is(err, core.ErrEmptyExport) {
			UnprocessableEntityError("No rows match the current filter").
				TriggerWarningNotification("Nothing to export for " + period.String()).
				Write(w)
			return
		}
		s.logger.ErrorContext(ctx, "building export", "kind", kind, "error", err)
		InternalServerError("Could not build the export").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, report); err != nil {
		s.logger.ErrorContext(ctx, "writing export", "kind", kind, "error", err)
		InternalServerError("Could not write the export file").Write(w)
		return
	}

	filename := export.Filename(kind, period)
	s.logger.InfoContext(ctx, "export generated",
		"kind", kind, "period", period.String(), "filename", filename, "bytes", buf.Len())

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// filterRoster keeps entities whose display name contains the query,
// case-insensitively. An empty query keeps everyone.
func filterRoster(roster []core.Entity, query string) []core.Entity {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return roster
	}
	var out []core.Entity
	for _, e := range roster {
		if strings.Contains(strings.ToLower(e.DisplayName), query) {
			out = append(out, e)
		}
	}
	return out
}
