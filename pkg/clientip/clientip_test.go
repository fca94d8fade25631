package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oppwatch/gateway/pkg/clientip"
)

func request(remoteAddr string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remoteAddr
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:   "direct connection",
			remote: "203.0.113.7:51234",
			want:   "203.0.113.7",
		},
		{
			name:    "cloudflare header wins",
			remote:  "10.0.0.1:80",
			headers: map[string]string{"CF-Connecting-IP": "198.51.100.4", "X-Forwarded-For": "192.0.2.1"},
			want:    "198.51.100.4",
		},
		{
			name:    "forwarded-for leftmost hop",
			remote:  "10.0.0.1:80",
			headers: map[string]string{"X-Forwarded-For": "192.0.2.1, 10.0.0.2, 10.0.0.3"},
			want:    "192.0.2.1",
		},
		{
			name:    "real-ip fallback",
			remote:  "10.0.0.1:80",
			headers: map[string]string{"X-Real-IP": "192.0.2.9"},
			want:    "192.0.2.9",
		},
		{
			name:    "invalid header falls through to remote",
			remote:  "203.0.113.7:51234",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:    "203.0.113.7",
		},
		{
			name:    "unspecified address rejected",
			remote:  "203.0.113.7:51234",
			headers: map[string]string{"X-Real-IP": "0.0.0.0"},
			want:    "203.0.113.7",
		},
		{
			name:   "ipv6 remote",
			remote: "[2001:db8::1]:443",
			want:   "2001:db8::1",
		},
		{
			name:    "ipv6 forwarded",
			remote:  "10.0.0.1:80",
			headers: map[string]string{"X-Forwarded-For": "2001:db8::2"},
			want:    "2001:db8::2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, clientip.GetIP(request(tt.remote, tt.headers)))
		})
	}
}
