package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("10.0.0.0/8"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	if err := d.AddTrustedProxy("10.0.0.1"); err == nil {
		t.Fatal("expected a bare address to be rejected")
	}
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:1234", "", "203.0.113.9"},
		{"untrusted proxy header ignored", "203.0.113.9:1234", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy", "10.0.0.2:1234", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy with garbage", "10.0.0.2:1234", "not-an-ip", "10.0.0.2"},
		{"loopback proxy", "127.0.0.1:8080", "198.51.100.7", "198.51.100.7"},
		{"private range not trusted by default", "192.168.1.5:1234", "198.51.100.1", "192.168.1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
	if d.GetMetrics().InvalidIPAttempts != 1 {
		t.Fatalf("expected one invalid forwarded address, got %+v", d.GetMetrics())
	}
}

func TestDetector_DetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name  string
		path  string
		agent string
		want  string
	}{
		{"trend dashboard", "/api/trends", "Mozilla/5.0", ""},
		{"path traversal", "/static/../../etc/passwd", "Mozilla/5.0", "probe_path"},
		{"dotenv probe", "/.env", "Mozilla/5.0", "probe_path"},
		{"scanner agent", "/", "sqlmap/1.7", "scanner_agent"},
		{"scripted client", "/api/trends", "curl/8.0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.URL.Path = tt.path
			r.Header.Set("User-Agent", tt.agent)
			got, flagged := d.DetectSuspiciousRequest(r)
			if got != tt.want || flagged != (tt.want != "") {
				t.Fatalf("DetectSuspiciousRequest() = %q, %v, want %q", got, flagged, tt.want)
			}
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/api/trends?kind=logs&category=%3Cscript%3E", nil)
	if reason, _ := d.DetectSuspiciousRequest(r); reason != "probe_query" {
		t.Fatalf("expected probe_query, got %q", reason)
	}
	r = httptest.NewRequest("TRACE", "/", nil)
	if reason, _ := d.DetectSuspiciousRequest(r); reason != "unusual_method" {
		t.Fatalf("expected unusual_method, got %q", reason)
	}
}

func TestDetector_MiddlewareNeverBlocks(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rec.Code != http.StatusTeapot || d.GetMetrics().SuspiciousRequests != 1 {
		t.Fatalf("expected pass-through and one detection, got %d / %+v", rec.Code, d.GetMetrics())
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("missing security headers: %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected HSTS header %q", got)
	}
}
