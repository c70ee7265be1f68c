package http

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"qboard/internal/core"
)

const recentLimit = 20

// overviewRow is one line of the recent-activity list.
type overviewRow struct {
	Name   string
	Kind   core.EntityKind
	Record core.Record
}

// kindSummary is the per-report headline on the overview tab.
type kindSummary struct {
	Kind       core.EntityKind
	ReportName string
	Totals     core.Totals
}

type overviewData struct {
	Session   Session
	Period    core.Period
	Recent    []overviewRow
	Summaries []kindSummary
}

// handleOverview renders the read-only landing tab: current-period totals
// per report plus the most recent records across both.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	period := core.CurrentPeriod()

	kinds := []core.EntityKind{core.KindUser, core.KindProject}

	var recent []core.Record
	reportRosters := make([][]core.Entity, len(kinds))
	reportViews := make([]core.GroupedView, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.backend.ListRecent(gctx, recentLimit)
		return err
	})
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			roster, records, err := s.fetchReportData(gctx, kind, "")
			if err != nil {
				return err
			}
			reportRosters[i] = roster
			reportViews[i] = core.BuildView(records, roster, period, core.ViewOptions{})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "loading overview", "error", err)
		InternalServerError("Could not load the overview").
			TriggerErrorNotification("Could not load data, try refreshing").
			Write(w)
		return
	}

	names := make(map[core.EntityKind]map[int64]string, len(kinds))
	for i, kind := range kinds {
		byID := make(map[int64]string, len(reportRosters[i]))
		for _, e := range reportRosters[i] {
			byID[e.ID] = e.DisplayName
		}
		names[kind] = byID
	}

	rows := make([]overviewRow, 0, len(recent))
	for _, rec := range recent {
		name := names[rec.Kind][rec.EntityID]
		if name == "" {
			name = "-"
		}
		rows = append(rows, overviewRow{Name: name, Kind: rec.Kind, Record: rec})
	}

	summaries := make([]kindSummary, 0, len(kinds))
	for i, kind := range kinds {
		summaries = append(summaries, kindSummary{
			Kind:       kind,
			ReportName: kind.ReportName(),
			Totals:     core.ComputeTotals(reportViews[i].Rows[period]),
		})
	}

	data := overviewData{
		Session:   s.session,
		Period:    period,
		Recent:    rows,
		Summaries: summaries,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "overview.html", data); err != nil {
		s.logger.ErrorContext(ctx, "rendering overview", "error", err)
	}
}
