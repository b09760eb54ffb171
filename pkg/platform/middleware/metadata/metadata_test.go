package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"proctor/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:443", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:443", "198.51.100.4"},
		{"remote ipv4", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote ipv6", nil, "[::1]:5555", "::1"},
		{"garbage forwarded header", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.0.2.1:5555", "192.0.2.1"},
		{"no address at all", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata_StoresIPAndUserAgent(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip, ua = clientFrom(r.Context())
	}))
	r := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	r.RemoteAddr = "192.0.2.10:40000"
	r.Header.Set("User-Agent", "exam-service/2.1")

	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.10", ip)
	assert.Equal(t, "exam-service/2.1", ua)
}

func clientFrom(ctx context.Context) (string, string) {
	return requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx)
}
