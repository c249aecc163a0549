package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync/atomic"

	"lifedash/internal/core"
	applog "lifedash/internal/log"
)

// recordList is the JSON shape of GET /api/records/{kind}.
type recordList struct {
	Kind    core.RecordKind `json:"kind"`
	Count   int             `json:"count"`
	Records any             `json:"records"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ds, err := s.records.List(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := recordList{Kind: kind, Count: ds.Len()}
	switch kind {
	case core.KindBalances:
		out.Records = nonNil(ds.Balances)
	case core.KindPaycheck:
		out.Records = nonNil(ds.Paychecks)
	default:
		out.Records = nonNil(ds.Logs)
	}
	writeJSON(w, http.StatusOK, out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// handleCreateRecord accepts a JSON or form body. HTMX requests get an HTML
// confirmation plus a records:changed trigger; API clients get the stored
// record.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.respondCreateError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		created any
		id      string
		summary string
	)
	switch kind {
	case core.KindLogs:
		var l core.FinancialLog
		if l, err = parser.ParseLog(); err == nil {
			l, err = s.records.CreateLog(r.Context(), l)
			created, id = l, l.ID
			summary = l.Category + " " + core.FormatCurrency(l.Amount)
		}
	case core.KindBalances:
		var b core.FinancialBalance
		if b, err = parser.ParseBalance(); err == nil {
			b, err = s.records.CreateBalance(r.Context(), b)
			created, id = b, b.ID
			summary = b.AccountName + " " + core.FormatCurrency(b.Amount)
		}
	case core.KindPaycheck:
		var p core.PaycheckInfo
		if p, err = parser.ParsePaycheck(); err == nil {
			p, err = s.records.CreatePaycheck(r.Context(), p)
			created, id = p, p.ID
			summary = p.DeductionType + " " + core.FormatCurrency(p.Amount)
		}
	}
	if err != nil {
		status := StatusFor(err)
		if wantsHTML(r) {
			message := err.Error()
			if status == http.StatusInternalServerError {
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to save record",
					applog.FieldError, err, applog.FieldKind, kind)
				message = "Error saving record"
			}
			ErrorResponse(status, message).Write(w)
			return
		}
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.recordsCreated, 1)
	if wantsHTML(r) {
		NewHTMXResponse().
			TriggerRecordsChanged(kind, applog.OpCreate).
			TriggerSuccessNotification("Record saved").
			BodyHTML(fmt.Sprintf(`<div class="success">Saved %s record %s: %s</div>`,
				kind, template.HTMLEscapeString(id), template.HTMLEscapeString(strings.TrimSpace(summary)))).
			Write(w)
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/records/"+kind.String()+"/"+id).
		JSON(created).
		Write(w)
}

func (s *Server) respondCreateError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsHTML(r) {
		ErrorResponse(status, message).Write(w)
		return
	}
	JSONError(status, message, requestID(r)).Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.records.Delete(r.Context(), kind, id); err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.recordsDeleted, 1)
	if wantsHTML(r) {
		NewHTMXResponse().TriggerRecordsChanged(kind, applog.OpDelete).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
