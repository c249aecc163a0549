// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing HTMX responses,
// plus the JSON helpers the API handlers share and the mapping from domain
// errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"lifedash/internal/core"
	applog "lifedash/internal/log"
	"lifedash/internal/records"
	"lifedash/internal/services"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
// It encapsulates the construction of HX-Trigger headers and response bodies.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerRecordsChanged adds the records:changed trigger so trend panels of
// the kind reload.
func (b *HTMXResponseBuilder) TriggerRecordsChanged(kind core.RecordKind, operation string) *HTMXResponseBuilder {
	return b.Trigger("records:changed", map[string]string{"kind": kind.String(), "operation": operation})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// TriggerNotification adds a show-notification trigger with the specified parameters.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

// TriggerSuccessNotification is a convenience method for success notifications.
func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the response body to the encoding of v.
func (b *HTMXResponseBuilder) JSON(v any) *HTMXResponseBuilder {
	body, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		body = []byte(`{"error":"encode response"}`)
	}
	b.headers["Content-Type"] = "application/json"
	b.body = body
	return b
}

// RawJSON sets an already encoded JSON body.
func (b *HTMXResponseBuilder) RawJSON(body []byte) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "application/json"
	b.body = body
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	escapedMsg := template.HTMLEscapeString(message)
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + escapedMsg + `</div>`)
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// JSONError creates a JSON error response.
func JSONError(statusCode int, message, requestID string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		JSON(errorBody{Error: message, RequestID: requestID})
}

// StatusFor maps a domain error to the status code reported to clients.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, records.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, services.ErrInvalidQuery),
		errors.Is(err, core.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyAccountName),
		errors.Is(err, core.ErrEmptyDeduction),
		errors.Is(err, core.ErrDescriptionLength):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError reports err as JSON. Server errors are logged and their detail
// is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldPath, r.URL.Path)
		message = http.StatusText(status)
	}
	JSONError(status, message, requestID(r)).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewHTMXResponse().Status(status).JSON(v).Write(w)
}
