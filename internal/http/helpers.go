package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"qboard/internal/core"
	"qboard/internal/tracker"
)

// trackerFilter builds a backend listing filter scoped to a roster group.
// Records are always listed across every period; period selection happens
// in memory so a period switch never refetches.
func trackerFilter(group string) tracker.ListFilter {
	return tracker.ListFilter{Group: group}
}

// parsePeriodParam reads the period query parameter. Missing means the
// current period; a malformed label is reported, not silently corrected.
func parsePeriodParam(r *http.Request) (core.Period, error) {
	v := strings.TrimSpace(r.URL.Query().Get("period"))
	if v == "" {
		return core.CurrentPeriod(), nil
	}
	return core.ParsePeriod(v)
}

// parseKindParam reads the report kind from the route's {kind} segment.
func parseKindParam(r *http.Request) (core.EntityKind, bool) {
	kind := core.EntityKind(strings.TrimSpace(r.PathValue("kind")))
	return kind, kind.IsValid()
}

// parseMetric parses a non-empty decimal form field. Empty means zero.
func parseMetric(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	// Accept a decimal comma
	v = strings.ReplaceAll(v, ",", ".")
	return strconv.ParseFloat(v, 64)
}

// formatMetric renders a metric without trailing zeros.
func formatMetric(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// backendTimeout bounds backend calls made while rendering partials so a
// slow gateway cannot hang the page.
const backendTimeout = 7 * time.Second
