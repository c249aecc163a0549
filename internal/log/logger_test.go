package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentRecords,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLogger_AddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("aggregated", FieldRows, 3)

	out := buf.String()
	if !strings.Contains(out, "component=records") {
		t.Fatalf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "rows=3") {
		t.Fatalf("expected rows attribute, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_WithComponentKeepsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf).With(FieldRequestID, "req_1").WithComponent(ComponentHTTP)

	logger.Info("served")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Fatalf("expected exactly one http component, got %q", out)
	}
	if !strings.Contains(out, "request_id=req_1") {
		t.Fatalf("expected request id to survive, got %q", out)
	}
}

func TestFields_ToSliceIsOrdered(t *testing.T) {
	got := NewFields().WithOperation(OpCreate).WithRecord("logs", "").ToSlice()
	want := []any{FieldKind, "logs", FieldOperation, OpCreate}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice() = %v, want %v", got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	ctx := context.WithValue(context.Background(), LoggerContextKey, logger)
	if got := FromContext(ctx); got != logger {
		t.Fatal("expected the stored logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger outside a request")
	}
}

func TestStructuredLogger_LogRecordChanged(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))

	sl.LogRecordChanged(context.Background(), OpCreate, "logs", "abc")

	out := buf.String()
	for _, want := range []string{"kind=logs", "record_id=abc", "operation=create"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
