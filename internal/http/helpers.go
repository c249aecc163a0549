package http

import (
	"net/http"
	"strings"

	"lifedash/internal/middleware/trace"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// requestID returns the id the trace middleware assigned to r.
func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

// wantsHTML reports whether the request came from an HTMX form.
func wantsHTML(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
