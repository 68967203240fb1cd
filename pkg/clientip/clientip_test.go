package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/hostelkit/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "203.0.113.7:4431", "203.0.113.7"},
		{"remote addr without port", nil, "203.0.113.7", "203.0.113.7"},
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "10.0.0.1"}, "10.0.0.2:1", "198.51.100.1"},
		{"first valid forwarded entry", map[string]string{"X-Forwarded-For": "unknown, 198.51.100.9, 10.0.0.1"}, "10.0.0.2:1", "198.51.100.9"},
		{"invalid header falls through", map[string]string{"X-Real-IP": "not-an-ip"}, "203.0.113.7:1", "203.0.113.7"},
		{"ipv6 normalised", map[string]string{"X-Real-IP": "2001:DB8::1"}, "", "2001:db8::1"},
		{"nothing usable", nil, "garbage", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(r))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	h := clientip.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = clientip.GetIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil)
	r.Header.Set("True-Client-IP", "198.51.100.4")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "198.51.100.4", got)
}
