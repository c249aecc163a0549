package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lifedash/internal/core"
	applog "lifedash/internal/log"
	"lifedash/internal/services"
	"lifedash/internal/trend"
)

// handleTrends serves the aggregated series of one kind as JSON.
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	q, err := ParseTrendQuery(r, s.trends.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.trends.Trend(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleTrendOptions lists filter values and the date span of one kind.
func (s *Server) handleTrendOptions(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := s.trends.FilterOptions(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	kind, q, err := ParseOverviewQuery(r, s.trends.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := s.trends.Overview(r.Context(), kind, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// handleSnapshot serves a report precomputed by the snapshot worker. The
// stored payload is written as is.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		JSONError(http.StatusNotFound, "snapshots are only kept by the sqlite backend", requestID(r)).Write(w)
		return
	}
	kind, err := parseKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := trend.ViewMode(strings.ToLower(r.PathValue("view")))
	if view != trend.Separate && view != trend.Net {
		writeError(w, r, fmt.Errorf("%w: view mode %q must be separate or net", services.ErrInvalidQuery, view))
		return
	}

	unit, size := trend.Month, 1
	if v := r.URL.Query().Get("unit"); v != "" {
		unit = trend.PeriodUnit(strings.ToLower(v))
	}
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: size %q is not a number", services.ErrInvalidQuery, v))
			return
		}
		size = n
	}

	snap, err := s.snapshots.GetSnapshot(r.Context(), kind, string(view), string(unit), size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		Header("X-Snapshot-Generated-At", snap.GeneratedAt.UTC().Format(time.RFC3339)).
		Header("X-Snapshot-Records", strconv.Itoa(snap.RecordCount)).
		RawJSON(snap.Payload).
		Write(w)
}

// handleTrendPartial renders the trend table fragment the dashboard swaps in.
func (s *Server) handleTrendPartial(w http.ResponseWriter, r *http.Request) {
	q, err := ParseTrendQuery(r, s.trends.Location())
	if err != nil {
		ErrorResponse(StatusFor(err), err.Error()).Write(w)
		return
	}
	report, err := s.trends.Trend(r.Context(), q)
	if err != nil {
		status := StatusFor(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Trend partial failed", applog.FieldError, err)
			message = "Error loading trend"
		}
		ErrorResponse(status, message).Write(w)
		return
	}
	if s.templates == nil {
		ErrorResponse(http.StatusInternalServerError, "templates not loaded").Write(w)
		return
	}

	data := struct {
		Kind    core.RecordKind
		Options trend.Options
		Report  services.TrendReport
	}{Kind: q.Kind, Options: report.Options, Report: report}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "trend_table.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution error",
			applog.FieldError, err,
			"template", "trend_table.html")
	}
}
