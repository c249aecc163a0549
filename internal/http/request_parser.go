// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// trend and overview query strings, and record bodies sent as JSON or as
// form-encoded data.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
	"lifedash/internal/services"
	"lifedash/internal/trend"
)

// maxBodyBytes caps record bodies.
const maxBodyBytes = 1 << 16

// parseKind reads the record kind from the path value or the "kind" query
// parameter. A missing kind means logs.
func parseKind(r *http.Request) (core.RecordKind, error) {
	raw := r.PathValue("kind")
	if raw == "" {
		raw = r.URL.Query().Get("kind")
	}
	if strings.TrimSpace(raw) == "" {
		return core.KindLogs, nil
	}
	return core.ParseRecordKind(raw)
}

// ParseTrendQuery extracts a trend query from the URL. Missing options fall
// back to trend.DefaultOptions; range checks are left to the trend service.
func ParseTrendQuery(r *http.Request, loc *time.Location) (services.TrendQuery, error) {
	kind, err := parseKind(r)
	if err != nil {
		return services.TrendQuery{}, err
	}
	q := r.URL.Query()

	opts := trend.DefaultOptions()
	if v := strings.TrimSpace(q.Get("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return services.TrendQuery{}, fmt.Errorf("%w: size %q is not a number", services.ErrInvalidQuery, v)
		}
		opts.PeriodSize = n
	}
	if v := strings.TrimSpace(q.Get("unit")); v != "" {
		opts.PeriodUnit = trend.PeriodUnit(strings.ToLower(v))
	}
	if v := strings.TrimSpace(q.Get("view")); v != "" {
		opts.ViewMode = trend.ViewMode(strings.ToLower(v))
	}

	filter, err := ParseFilter(q, loc)
	if err != nil {
		return services.TrendQuery{}, err
	}
	return services.TrendQuery{Kind: kind, Options: opts, Filter: filter}, nil
}

// ParseFilter reads the selection and date parameters shared by the trend
// and overview endpoints. Repeated parameters select several values.
func ParseFilter(q url.Values, loc *time.Location) (trend.Filter, error) {
	f := trend.Filter{
		Categories:     trend.NormalizeSelection(q["category"]),
		Tags:           trend.NormalizeSelection(q["tag"]),
		AccountTypes:   trend.NormalizeSelection(q["account_type"]),
		AccountOwners:  trend.NormalizeSelection(q["account_owner"]),
		DeductionTypes: trend.NormalizeSelection(q["deduction_type"]),
	}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := strings.TrimSpace(q.Get(bound.name))
		if v == "" {
			continue
		}
		t, err := core.ParseDate(v, loc)
		if err != nil {
			return trend.Filter{}, fmt.Errorf("%w: %s: %v", services.ErrInvalidQuery, bound.name, err)
		}
		*bound.dst = &t
	}
	return f, nil
}

// ParseOverviewQuery extracts the overview window. Year and month default to
// the current date in loc; the window defaults to all.
func ParseOverviewQuery(r *http.Request, loc *time.Location) (core.RecordKind, trend.OverviewQuery, error) {
	kind, err := parseKind(r)
	if err != nil {
		return "", trend.OverviewQuery{}, err
	}
	q := r.URL.Query()

	now := time.Now().In(loc)
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"year", &params.Year}, {"month", &params.Month}} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", trend.OverviewQuery{}, fmt.Errorf("%w: %s %q is not a number", services.ErrInvalidQuery, p.name, v)
		}
		*p.dst = n
	}

	window := trend.WindowAll
	if v := strings.TrimSpace(q.Get("window")); v != "" {
		window = trend.Window(strings.ToLower(v))
	}

	filter, err := ParseFilter(q, loc)
	if err != nil {
		return "", trend.OverviewQuery{}, err
	}
	return kind, trend.OverviewQuery{
		Window: window,
		Year:   params.Year,
		Month:  time.Month(params.Month),
		Filter: filter,
	}, nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Numbers are kept as json.Number so amounts never pass through float64.
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func (p *RequestBodyParser) amount() (decimal.Decimal, error) {
	return core.ParseAmount(p.Get("amount"))
}

// ParseLog builds a log from the body. Validation is left to the record
// service.
func (p *RequestBodyParser) ParseLog() (core.FinancialLog, error) {
	amount, err := p.amount()
	if err != nil {
		return core.FinancialLog{}, err
	}
	return core.FinancialLog{
		Date:        p.Get("date"),
		Amount:      amount,
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Tags:        p.Get("tags"),
	}, nil
}

// ParseBalance builds a balance from the body.
func (p *RequestBodyParser) ParseBalance() (core.FinancialBalance, error) {
	amount, err := p.amount()
	if err != nil {
		return core.FinancialBalance{}, err
	}
	return core.FinancialBalance{
		Date:         p.Get("date"),
		Amount:       amount,
		AccountName:  p.Get("account_name"),
		AccountType:  p.Get("account_type"),
		AccountOwner: p.Get("account_owner"),
	}, nil
}

// ParsePaycheck builds a paycheck line from the body.
func (p *RequestBodyParser) ParsePaycheck() (core.PaycheckInfo, error) {
	amount, err := p.amount()
	if err != nil {
		return core.PaycheckInfo{}, err
	}
	return core.PaycheckInfo{
		Date:          p.Get("date"),
		Amount:        amount,
		Category:      p.Get("category"),
		DeductionType: p.Get("deduction_type"),
	}, nil
}
