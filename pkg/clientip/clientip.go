// Package clientip extracts real client IP addresses from HTTP requests.
//
// Proxy headers are checked in priority order: CF-Connecting-IP,
// DO-Connecting-IP, X-Forwarded-For (leftmost hop), X-Real-IP, then the
// connection's RemoteAddr. Every candidate is validated with net.ParseIP
// and normalized; 0.0.0.0 is rejected. When nothing validates, the raw
// RemoteAddr is returned so callers always get a non-empty key.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
}

// GetIP returns the client's IP address for the request.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		if ip := normalize(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	// X-Forwarded-For may list multiple hops; the leftmost is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := normalize(first); ip != "" {
			return ip
		}
	}

	if ip := normalize(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip := normalize(host); ip != "" {
			return ip
		}
	}
	if ip := normalize(r.RemoteAddr); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// normalize validates and canonicalizes an IP candidate, returning "" for
// anything unusable.
func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
