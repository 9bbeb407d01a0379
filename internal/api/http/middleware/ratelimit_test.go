package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedRouter(rps, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(rps, burst), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRateLimitThrottlesPerKey(t *testing.T) {
	r := rateLimitedRouter(1, 1)

	do := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if key != "" {
			req.Header.Set("apikey", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, do("pk_anon_a"))
	assert.Equal(t, http.StatusTooManyRequests, do("pk_anon_a"))

	// A different key is a different bucket.
	assert.Equal(t, http.StatusOK, do("pk_anon_b"))
}

func TestRateLimitKeysOnEveryKeyCarrier(t *testing.T) {
	r := rateLimitedRouter(1, 1)

	do := func(mutate func(*http.Request)) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		mutate(req)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// The same key through header, bearer and query parameter lands in
	// one bucket.
	require.Equal(t, http.StatusOK, do(func(req *http.Request) {
		req.Header.Set("apikey", "pk_anon_x")
	}))
	assert.Equal(t, http.StatusTooManyRequests, do(func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer pk_anon_x")
	}))
	assert.Equal(t, http.StatusTooManyRequests, do(func(req *http.Request) {
		req.URL.RawQuery = "apikey=pk_anon_x"
	}))
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	r := rateLimitedRouter(1, 1)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5678"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1234"))
}
