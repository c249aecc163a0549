package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// rule reports whether a request looks like a probe.
type rule struct {
	name  string
	match func(r *http.Request) bool
}

var probeFragments = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab", "scanner",
}

var rules = []rule{
	{"probe_path", func(r *http.Request) bool {
		return containsAny(strings.ToLower(r.URL.Path), probeFragments)
	}},
	{"probe_query", func(r *http.Request) bool {
		q, err := url.QueryUnescape(r.URL.RawQuery)
		if err != nil {
			q = r.URL.RawQuery
		}
		return containsAny(strings.ToLower(q), probeFragments)
	}},
	{"scanner_agent", func(r *http.Request) bool {
		return containsAny(strings.ToLower(r.Header.Get("User-Agent")), scannerAgents)
	}},
	{"unusual_method", func(r *http.Request) bool {
		switch r.Method {
		case "TRACE", "TRACK", "DEBUG", "CONNECT":
			return true
		}
		return false
	}},
	// Dashboard URLs carry a handful of filters; kilobytes of query are not ours.
	{"oversized_url", func(r *http.Request) bool {
		return len(r.URL.RequestURI()) > 2048
	}},
	{"forwarding_chain", func(r *http.Request) bool {
		return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
	}},
}

func containsAny(s string, fragments []string) bool {
	if s == "" {
		return false
	}
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// Detector flags requests that look like probes and resolves client
// addresses behind trusted proxies. Flagged requests are counted and
// logged, never blocked.
type Detector struct {
	metrics        *DetectionMetrics
	trustedProxies []*net.IPNet
}

// NewDetector trusts forwarding headers from loopback only. Deployments
// behind a reverse proxy add its network with AddTrustedProxy.
func NewDetector() *Detector {
	d := &Detector{metrics: &DetectionMetrics{}}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128"} {
		_, network, _ := net.ParseCIDR(cidr)
		d.trustedProxies = append(d.trustedProxies, network)
	}
	return d
}

// AddTrustedProxy adds a network whose forwarding headers are believed.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// DetectSuspiciousRequest returns the name of the first rule the request
// trips, or false when it looks ordinary.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) (string, bool) {
	for _, rl := range rules {
		if rl.match(r) {
			atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
			return rl.name, true
		}
	}
	return "", false
}

// ExtractClientIP returns the address of the connecting peer, or the first
// address of X-Forwarded-For (then X-Real-IP) when the peer is a trusted
// proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	peerIP := net.ParseIP(peer)
	if peerIP == nil || !d.isTrustedProxy(peerIP) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
		atomic.AddInt64(&d.metrics.InvalidIPAttempts, 1)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		InvalidIPAttempts:  atomic.LoadInt64(&d.metrics.InvalidIPAttempts),
	}
}

// Middleware logs suspicious requests and passes every request through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason, ok := d.DetectSuspiciousRequest(r); ok {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"rule", reason,
				"client_ip", d.ExtractClientIP(r),
				"method", r.Method,
				"path", r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}
