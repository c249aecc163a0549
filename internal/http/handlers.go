package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"lifedash/internal/core"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name string, detail any) {
		checks[name] = detail
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "failed: templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	if s.trends == nil {
		fail("records", "not_configured")
	} else if _, err := s.trends.Dataset(ctx, core.KindLogs); err != nil {
		fail("records", fmt.Sprintf("failed: %v", err))
	} else {
		checks["records"] = map[string]any{"backend": s.backend, "status": "ok"}
	}

	if pinger, ok := s.snapshots.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			fail("snapshots", fmt.Sprintf("failed: %v", err))
		} else {
			checks["snapshots"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	created := atomic.LoadInt64(&s.appMetrics.recordsCreated)
	deleted := atomic.LoadInt64(&s.appMetrics.recordsDeleted)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Prometheus text exposition format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_seconds Mean request duration\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_seconds gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_seconds %.6f\n\n", traceMetrics.AverageLatency().Seconds())

	fmt.Fprintf(w, "# HELP records_written_total Records created or deleted through the API\n")
	fmt.Fprintf(w, "# TYPE records_written_total counter\n")
	fmt.Fprintf(w, "records_written_total{operation=\"create\"} %d\n", created)
	fmt.Fprintf(w, "records_written_total{operation=\"delete\"} %d\n\n", deleted)

	if s.trends != nil {
		stats := s.trends.CacheStats()
		fmt.Fprintf(w, "# HELP trend_cache_hits_total Trend report cache hits\n")
		fmt.Fprintf(w, "# TYPE trend_cache_hits_total counter\n")
		fmt.Fprintf(w, "trend_cache_hits_total %d\n\n", stats.Hits)

		fmt.Fprintf(w, "# HELP trend_cache_misses_total Trend report cache misses\n")
		fmt.Fprintf(w, "# TYPE trend_cache_misses_total counter\n")
		fmt.Fprintf(w, "trend_cache_misses_total %d\n\n", stats.Misses)

		fmt.Fprintf(w, "# HELP trend_cache_entries Current trend report cache entries\n")
		fmt.Fprintf(w, "# TYPE trend_cache_entries gauge\n")
		fmt.Fprintf(w, "trend_cache_entries %d\n\n", stats.Size)
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	if s.hub != nil {
		fmt.Fprintf(w, "# HELP websocket_clients Connected dashboard websockets\n")
		fmt.Fprintf(w, "# TYPE websocket_clients gauge\n")
		fmt.Fprintf(w, "websocket_clients %d\n\n", s.hub.Count())
	}

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
