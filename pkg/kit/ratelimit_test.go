package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiter_BurstThenReject(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_EvictsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	l.Allow("10.0.0.2")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.visitors, 1)
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/products/1/reviews", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIPRateLimiter_ForwardedForNeedsTrustedPeer(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	send := func(h http.Handler, remote, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/products/1/reviews", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// A direct client cannot dodge its bucket by rotating the header.
	direct := NewIPRateLimiter(0.001, 1).Middleware(ok)
	assert.Equal(t, http.StatusNoContent, send(direct, "198.51.100.9:4000", "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send(direct, "198.51.100.9:4000", "203.0.113.2"))

	l := NewIPRateLimiter(0.001, 1)
	require.NoError(t, l.TrustProxies("10.0.0.0/8"))
	proxied := l.Middleware(ok)
	assert.Equal(t, http.StatusNoContent, send(proxied, "10.1.2.3:5000", "203.0.113.1"))
	assert.Equal(t, http.StatusNoContent, send(proxied, "10.1.2.3:5000", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send(proxied, "10.1.2.3:5000", "203.0.113.1, 10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send(proxied, "198.51.100.9:4000", "203.0.113.1"))
}

func TestIPRateLimiter_TrustProxiesRejectsBadCIDR(t *testing.T) {
	assert.Error(t, NewIPRateLimiter(1, 1).TrustProxies("10.0.0.0/8", "not-a-cidr"))
}

func TestBearerToken(t *testing.T) {
	h := BearerToken("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"", http.StatusForbidden},
		{"Bearer nope", http.StatusForbidden},
		{"Basic s3cret", http.StatusForbidden},
		{"Bearer s3cret", http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.header)
	}
}
