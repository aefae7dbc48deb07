package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractClientIP(t *testing.T) {
	d, err := NewDetector("203.0.113.7")
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct public peer", "198.51.100.1:5000", nil, "198.51.100.1"},
		{
			name:       "untrusted peer ignores forwarded header",
			remoteAddr: "198.51.100.1:5000",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			want:       "198.51.100.1",
		},
		{
			name:       "private proxy forwards",
			remoteAddr: "10.0.0.5:5000",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.5"},
			want:       "1.2.3.4",
		},
		{
			name:       "configured proxy forwards",
			remoteAddr: "203.0.113.7:443",
			headers:    map[string]string{"X-Real-IP": "5.6.7.8"},
			want:       "5.6.7.8",
		},
		{
			name:       "invalid forwarded value falls back",
			remoteAddr: "127.0.0.1:5000",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/budget", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(req))
		})
	}

	assert.Equal(t, int64(1), d.GetMetrics().InvalidIPAttempts)
}

func TestNewDetectorRejectsBadProxy(t *testing.T) {
	_, err := NewDetector("not-a-network")
	assert.Error(t, err)
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal", http.MethodGet, "/subscriptions/search?name=net", "Mozilla/5.0", false},
		{"api client", http.MethodGet, "/budget", "curl/8.0", false},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"traversal in query", http.MethodGet, "/subscriptions/search?name=../etc/passwd", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.agent)
			assert.Equal(t, tt.want, d.DetectSuspiciousRequest(req))
		})
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/budget", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/budget", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}
