package http

import (
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
	applog "lifedash/internal/log"
	"lifedash/internal/trend"
)

var templateFuncs = template.FuncMap{
	"currency": core.FormatCurrency,
	"cell": func(row trend.Row, group string) string {
		return core.FormatCurrency(row.Value(group))
	},
	"negative": func(d decimal.Decimal) bool {
		return d.IsNegative()
	},
}

// handleIndex renders the dashboard shell. Charts are filled in by the
// trend partial and refreshed over the websocket.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Kinds    []core.RecordKind
		Units    []trend.PeriodUnit
		Views    []trend.ViewMode
		Defaults trend.Options
		Backend  string
		Live     bool
	}{
		Kinds:    core.Kinds(),
		Units:    []trend.PeriodUnit{trend.Month, trend.Year},
		Views:    []trend.ViewMode{trend.Separate, trend.Net},
		Defaults: trend.DefaultOptions(),
		Backend:  s.backend,
		Live:     s.hub != nil,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err,
			"template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
