package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lifedash/internal/core"
	"lifedash/internal/records"
	"lifedash/internal/services"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyHTML("<p>test</p>").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "<p>test</p>" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "<p>test</p>")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerRecordsChanged(core.KindBalances, "create").
		TriggerSuccessNotification("Record saved").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}
	for _, part := range []string{
		`"records:changed"`,
		`"kind":"balances"`,
		`"operation":"create"`,
		`"show-notification"`,
		`"type":"success"`,
	} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("Custom header not set")
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponse_EscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusUnprocessableEntity, `<script>alert("x")</script>`).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message was not escaped: %s", w.Body.String())
	}
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(http.StatusNotFound, "record not found", "abc123").Write(w)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status code = %d", w.Code)
	}
	want := `{"error":"record not found","request_id":"abc123"}`
	if w.Body.String() != want {
		t.Errorf("Body = %s, want %s", w.Body.String(), want)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("delete logs record x: %w", records.ErrNotFound), http.StatusNotFound},
		{"read only", records.ErrReadOnly, http.StatusMethodNotAllowed},
		{"invalid query", fmt.Errorf("%w: size", services.ErrInvalidQuery), http.StatusBadRequest},
		{"unknown kind", fmt.Errorf("%w: %q", core.ErrUnknownKind, "x"), http.StatusBadRequest},
		{"invalid date", fmt.Errorf("create financial log: %w", core.ErrInvalidDate), http.StatusUnprocessableEntity},
		{"invalid amount", core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{"empty category", core.ErrEmptyCategory, http.StatusUnprocessableEntity},
		{"empty account", core.ErrEmptyAccountName, http.StatusUnprocessableEntity},
		{"empty deduction", core.ErrEmptyDeduction, http.StatusUnprocessableEntity},
		{"description", core.ErrDescriptionLength, http.StatusUnprocessableEntity},
		{"anything else", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/trends", nil)
	writeError(w, r, errors.New("open /var/lib/lifedash.db: permission denied"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Status code = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "permission denied") {
		t.Errorf("internal error leaked to client: %s", w.Body.String())
	}
}
