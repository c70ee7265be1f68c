package http

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"qboard/internal/core"
)

// tabDef describes one tab of the page shell.
type tabDef struct {
	ID     string
	Label  string
	LoadURL string
}

// indexData feeds the page shell template.
type indexData struct {
	Session Session
	Period  core.Period
	Tabs    []tabDef
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Session: s.session,
		Period:  core.CurrentPeriod(),
		Tabs: []tabDef{
			{ID: "overview", Label: "Overview", LoadURL: "/ui/overview"},
			{ID: "user-targets", Label: "User Targets", LoadURL: "/ui/targets/user"},
			{ID: "project-targets", Label: "Project Targets", LoadURL: "/ui/targets/project"},
		},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "rendering index", "error", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz verifies the backend answers a cheap read before reporting
// ready. Load balancers gate traffic on this.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()

	if _, err := s.backend.ListRoster(ctx, core.KindUser); err != nil {
		s.logger.WarnContext(ctx, "readiness check failed", "error", err)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// fetchRoster returns the cached roster for a kind or loads it from the
// backend on a miss.
func (s *Server) fetchRoster(ctx context.Context, kind core.EntityKind) ([]core.Entity, error) {
	if roster, ok := s.rosterCache.Get(string(kind)); ok {
		return roster, nil
	}
	roster, err := s.backend.ListRoster(ctx, kind)
	if err != nil {
		return nil, err
	}
	s.rosterCache.Set(string(kind), roster)
	return roster, nil
}

// fetchRecords returns all records of a kind, across periods, cached. Period
// and text filtering happen in memory on every render.
func (s *Server) fetchRecords(ctx context.Context, kind core.EntityKind, group string) ([]core.Record, error) {
	if group == "" {
		if records, ok := s.recordsCache.Get(string(kind)); ok {
			return records, nil
		}
	}
	records, err := s.backend.ListRecords(ctx, kind, trackerFilter(group))
	if err != nil {
		return nil, err
	}
	if group == "" {
		s.recordsCache.Set(string(kind), records)
	}
	return records, nil
}

// fetchReportData loads roster and records concurrently.
func (s *Server) fetchReportData(ctx context.Context, kind core.EntityKind, group string) ([]core.Entity, []core.Record, error) {
	var (
		roster  []core.Entity
		records []core.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.fetchRoster(gctx, kind)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.fetchRecords(gctx, kind, group)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return roster, records, nil
}
