package core

import "strings"

// GroupedView is the complete grid for one report: every observed period maps
// to one row per roster entity, placeholders filling the gaps. Periods carries
// the keys pre-sorted most-recent-first.
type GroupedView struct {
	Periods []Period
	Rows    map[Period][]Record
}

// ViewOptions tunes placeholder synthesis.
type ViewOptions struct {
	// GroupFilter restricts placeholder synthesis to entities whose GroupName
	// matches; persisted records outside the group remain visible.
	GroupFilter string
}

// BuildView left-joins the roster against fetched records. For each period
// present in records (plus current, always), every roster entity gets exactly
// one row: the persisted record when one exists, a placeholder otherwise.
// Entities keep roster order. Calling twice with identical inputs yields
// structurally equal views.
func BuildView(records []Record, roster []Entity, current Period, opts ViewOptions) GroupedView {
	periodSet := map[Period]struct{}{current: {}}
	byKey := make(map[RowKey]Record, len(records))
	for _, r := range records {
		periodSet[r.Period] = struct{}{}
		byKey[r.Key()] = r
	}

	periods := make([]Period, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	SortPeriodsDesc(periods)

	rows := make(map[Period][]Record, len(periods))
	for _, p := range periods {
		group := make([]Record, 0, len(roster))
		seen := make(map[int64]struct{}, len(roster))
		for _, e := range roster {
			if rec, ok := byKey[RowKey{EntityID: e.ID, Period: p}]; ok {
				rec.Persisted = true
				group = append(group, rec)
				seen[e.ID] = struct{}{}
				continue
			}
			if opts.GroupFilter != "" && !strings.EqualFold(e.GroupName, opts.GroupFilter) {
				// Out of scope: no placeholder fabricated.
				continue
			}
			group = append(group, Placeholder(e, p))
			seen[e.ID] = struct{}{}
		}
		// Persisted records the backend returned for entities outside the
		// roster scope stay visible, appended after the roster rows.
		for _, r := range records {
			if r.Period != p {
				continue
			}
			if _, ok := seen[r.EntityID]; ok {
				continue
			}
			r.Persisted = true
			group = append(group, r)
			seen[r.EntityID] = struct{}{}
		}
		rows[p] = group
	}

	return GroupedView{Periods: periods, Rows: rows}
}

// FilterRows returns the rows of one period whose entity display name contains
// the query, case-insensitively. The underlying view is not mutated. Names are
// resolved through the roster; rows for entities missing from the roster match
// only an empty query.
func (v GroupedView) FilterRows(p Period, roster []Entity, query string) []Record {
	rows := v.Rows[p]
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Record, len(rows))
		copy(out, rows)
		return out
	}
	names := make(map[int64]string, len(roster))
	for _, e := range roster {
		names[e.ID] = strings.ToLower(e.DisplayName)
	}
	var out []Record
	for _, r := range rows {
		if strings.Contains(names[r.EntityID], query) {
			out = append(out, r)
		}
	}
	return out
}

// Totals aggregates metric columns over the persisted rows of a filtered set.
type Totals struct {
	Metrics Metrics
	Count   int // persisted rows contributing to the sums
}

// ComputeTotals sums each numeric metric over persisted rows only;
// placeholders contribute nothing and are excluded from the count basis.
func ComputeTotals(rows []Record) Totals {
	var t Totals
	for _, r := range rows {
		if !r.Persisted {
			continue
		}
		t.Metrics.Target += r.Metrics.Target
		t.Metrics.Achieved += r.Metrics.Achieved
		t.Metrics.Pending += r.Metrics.Pending
		t.Metrics.ExtraHours += r.Metrics.ExtraHours
		t.Metrics.WorkingDays += r.Metrics.WorkingDays
		t.Count++
	}
	return t
}

// HasTotals reports whether a totals footer should render at all.
func (t Totals) HasTotals() bool {
	return t.Count > 0
}
