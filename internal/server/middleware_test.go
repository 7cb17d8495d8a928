package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_CORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		corsOrigin     string
		method         string
		shouldCallNext bool
	}{
		{"GET request with CORS headers", "*", http.MethodGet, true},
		{"POST request with specific origin", "https://example.com", http.MethodPost, true},
		{"OPTIONS request (preflight)", "*", http.MethodOptions, false},
		{"empty CORS origin", "", http.MethodGet, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{corsOrigin: tt.corsOrigin}

			nextCalled := false
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			}

			w := httptest.NewRecorder()
			server.corsMiddleware(next)(w, httptest.NewRequest(tt.method, "/test", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.corsOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
			assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Footprint-Foreground")
			assert.Equal(t, tt.shouldCallNext, nextCalled)
		})
	}
}

func TestServer_CORSMiddleware_ErrorInNext(t *testing.T) {
	server := &Server{corsOrigin: "*"}
	next := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	w := httptest.NewRecorder()
	server.corsMiddleware(next)(w, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_CORSMiddleware_Chaining(t *testing.T) {
	server := &Server{corsOrigin: "https://test.com"}

	var callOrder []string
	final := func(w http.ResponseWriter, r *http.Request) {
		callOrder = append(callOrder, "final")
		w.WriteHeader(http.StatusOK)
	}
	inner := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			callOrder = append(callOrder, "inner")
			next(w, r)
		}
	}

	w := httptest.NewRecorder()
	server.corsMiddleware(inner(final))(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, []string{"inner", "final"}, callOrder)
	assert.Equal(t, "https://test.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimitMiddleware(t *testing.T) {
	server := newTestServer(t, func(c *Config) {
		c.RateLimit = &RateLimits{PerMinute: 2}
	})

	calls := 0
	handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/refine", nil)
		req.RemoteAddr = ip + ":4567"
		w := httptest.NewRecorder()
		handler(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)

	w := do("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.Equal(t, false, body["success"])

	// Other clients have their own windows.
	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)
	assert.Equal(t, 3, calls)
}

func TestServer_RateLimitMiddleware_Disabled(t *testing.T) {
	server := newTestServer(t, nil)
	require.Nil(t, server.rateLimiter)

	handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	for range 5 {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/v1/refine", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestHandleRateLimitError_Quota(t *testing.T) {
	server := newTestServer(t, nil)
	resets := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	w := httptest.NewRecorder()
	server.handleRateLimitError(w, &QuotaExceededError{Quota: "bytes", Limit: 100, Used: 90, Resets: resets})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "bytes", w.Header().Get("X-Quota-Type"))
	assert.Equal(t, "100", w.Header().Get("X-Quota-Limit"))
	assert.Equal(t, "90", w.Header().Get("X-Quota-Used"))
	assert.Equal(t, "Fri, 02 Jan 2026 00:00:00 GMT", w.Header().Get("X-Quota-Resets"))

	w = httptest.NewRecorder()
	server.handleRateLimitError(w, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.9:1", "203.0.113.7"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 203.0.113.8 "}, "10.0.0.9:1", "203.0.113.8"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.9:1", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.1:8080", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.2", "192.0.2.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
