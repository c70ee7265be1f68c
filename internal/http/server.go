package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"qboard/internal/backend"
	"qboard/internal/cache"
	"qboard/internal/core"
	"qboard/internal/middleware/ratelimit"
	"qboard/internal/middleware/security"
	"qboard/internal/middleware/trace"
	"qboard/internal/services"
	"qboard/web"
)

const (
	cacheTTL         = 2 * time.Minute
	cacheMaxEntries  = 16
	cacheCleanupTick = 5 * time.Minute
	staticMaxAge     = 3600
)

// Server serves the dashboard: the tabbed page shell, the HTMX table and
// overview partials, the record mutation endpoints and the xlsx export.
type Server struct {
	httpServer *http.Server
	templates  *template.Template
	backend    backend.Backend
	targets    *services.TargetService
	session    Session
	logger     *slog.Logger

	// Per-kind caches over backend reads. Keys are the kind string; any
	// mutation for a kind drops both entries so the next render re-fetches.
	recordsCache *cache.LRUCache[[]core.Record]
	rosterCache  *cache.LRUCache[[]core.Entity]
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
}

// NewServer wires the handler chain over the given backend. The target
// service here carries no publisher: mirroring is the storage adapter's
// concern, the HTTP layer only validates and classifies outcomes.
func NewServer(port string, b backend.Backend, session Session, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		templates:    tmpl,
		backend:      b,
		targets:      services.NewTargetService(b, b, b, nil),
		session:      session,
		logger:       logger,
		recordsCache: cache.NewLRUCache[[]core.Record](cacheMaxEntries, cacheTTL),
		rosterCache:  cache.NewLRUCache[[]core.Entity](cacheMaxEntries, cacheTTL),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
	}
	s.cacheManager.Register(s.recordsCache)
	s.cacheManager.Register(s.rosterCache)
	s.cacheManager.StartCleanup(cacheCleanupTick)

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.buildHandler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /ui/overview", s.handleOverview)
	mux.HandleFunc("GET /ui/targets/{kind}", s.handleTargetsTable)

	mux.HandleFunc("POST /targets/{kind}", s.handleAddTarget)
	mux.HandleFunc("POST /targets/{kind}/update", s.handleUpdateTarget)
	mux.HandleFunc("POST /targets/{kind}/delete", s.handleDeleteTarget)
	mux.HandleFunc("POST /targets/{kind}/bulk", s.handleBulkSubmit)

	mux.HandleFunc("GET /export/targets/{kind}", s.handleExport)

	staticFiles, err := fs.Sub(web.StaticFS, "static")
	if err == nil {
		staticHandler := security.StaticAssetMiddleware(staticMaxAge)(
			http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles))))
		mux.Handle("GET /static/", staticHandler)
	}

	extractIP := s.detector.ExtractClientIP
	traced := trace.NewMiddleware(extractIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(extractIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "rate limit exceeded",
			"client_ip", extractIP(r), "path", r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, slow down").Write(w)
	})

	var handler http.Handler = mux
	handler = limited(handler)
	handler = s.flagSuspicious(handler, extractIP)
	handler = headers.Middleware(handler)
	handler = traced.Middleware(handler)
	return handler
}

// flagSuspicious logs requests that look like scanner probes. They are
// served normally; the rate limiter is what actually slows an abuser down.
func (s *Server) flagSuspicious(next http.Handler, extractIP func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "suspicious request",
				"client_ip", extractIP(r), "path", r.URL.Path, "user_agent", r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the background cache and
// rate limiter goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cacheManager.Stop()
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// invalidateKind drops the cached records and roster for one report so the
// next table render observes the mutation.
func (s *Server) invalidateKind(kind core.EntityKind) {
	s.recordsCache.Delete(string(kind))
	s.rosterCache.Delete(string(kind))
}
