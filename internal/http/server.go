package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"lifedash/internal/core"
	applog "lifedash/internal/log"
	"lifedash/internal/middleware/ratelimit"
	"lifedash/internal/middleware/security"
	"lifedash/internal/middleware/trace"
	"lifedash/internal/realtime"
	"lifedash/internal/services"
	"lifedash/internal/storage"
	appweb "lifedash/web"
)

// SnapshotReader serves precomputed trend snapshots.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, kind core.RecordKind, viewMode, periodUnit string, periodSize int) (storage.Snapshot, error)
}

// Deps are the collaborators the server routes to. Snapshots and Hub are
// optional; leave them nil (not a typed nil pointer) when absent.
type Deps struct {
	Records            *services.RecordService
	Trends             *services.TrendService
	Snapshots          SnapshotReader
	Hub                *realtime.Hub
	Logger             *applog.Logger
	Backend            string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	records   *services.RecordService
	trends    *services.TrendService
	snapshots SnapshotReader
	hub       *realtime.Hub
	backend   string

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// appMetrics counts record writes for /metrics.
type appMetrics struct {
	recordsCreated int64
	recordsDeleted int64
	uptime         time.Time
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(strings.TrimSpace(cidr)); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	limitCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		logger:           logger,
		records:          deps.Records,
		trends:           deps.Trends,
		snapshots:        deps.Snapshots,
		hub:              deps.Hub,
		backend:          deps.Backend,
		rateLimiter:      ratelimit.NewLimiter(limitCfg),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/trend", s.handleTrendPartial)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/trends", s.handleTrends)
	mux.HandleFunc("GET /api/trends/options", s.handleTrendOptions)
	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/snapshots/{kind}/{view}", s.handleSnapshot)
	mux.HandleFunc("GET /api/records/{kind}", s.handleListRecords)
	mux.HandleFunc("POST /api/records/{kind}", s.handleCreateRecord)
	mux.HandleFunc("DELETE /api/records/{kind}/{id}", s.handleDeleteRecord)

	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(detector.ExtractClientIP)

	var handler http.Handler = mux
	handler = limited(handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

// Shutdown stops the rate limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
