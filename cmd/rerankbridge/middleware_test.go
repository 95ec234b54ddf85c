package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/rerankbridge/api/handlers"
	"github.com/BaSui01/rerankbridge/config"
	"github.com/BaSui01/rerankbridge/internal/metrics"
	"github.com/BaSui01/rerankbridge/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeaders_ChainedWithOtherMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	handler := Chain(inner, SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(okHandler(), mark("outer"), mark("inner"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = types.RequestID(r.Context())
	})
	handler := RequestID()(inner)

	t.Run("preserves client id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "req-abc")
		handler.ServeHTTP(w, r)

		assert.Equal(t, "req-abc", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "req-abc", seen)
	})

	t.Run("generates when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get("X-Request-ID")
		assert.Len(t, id, 36)
		assert.Equal(t, id, seen)
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		handler.ServeHTTP(w, r)

		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	})
}

func TestRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := Recovery(zap.NewNop())(panicking)

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		method     string
		header     string
		query      string
		allowQuery bool
		wantStatus int
	}{
		{name: "valid header", path: "/api/v1/rerank", header: "secret", wantStatus: http.StatusOK},
		{name: "missing key", path: "/api/v1/rerank", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", path: "/api/v1/rerank", header: "nope", wantStatus: http.StatusUnauthorized},
		{name: "skip path", path: "/health", wantStatus: http.StatusOK},
		{name: "preflight", path: "/api/v1/rerank", method: http.MethodOptions, wantStatus: http.StatusOK},
		{name: "query allowed", path: "/api/v1/rerank", query: "secret", allowQuery: true, wantStatus: http.StatusOK},
		{name: "query disallowed", path: "/api/v1/rerank", query: "secret", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth([]string{"secret"}, skipAuthPaths, tt.allowQuery, zap.NewNop())(okHandler())

			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			target := tt.path
			if tt.query != "" {
				target += "?api_key=" + tt.query
			}
			r := httptest.NewRequest(method, target, nil)
			if tt.header != "" {
				r.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAuth(t *testing.T) {
	cfg := config.JWTConfig{Secret: "jwt-secret", Issuer: "rerankbridge-tests"}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		auth       string
		path       string
		wantStatus int
		wantUser   string
	}{
		{
			name:       "user_id claim",
			auth:       "Bearer " + signToken(t, jwt.SigningMethodHS256, cfg.Secret, jwt.MapClaims{"user_id": "u-1", "iss": cfg.Issuer, "exp": exp}),
			wantStatus: http.StatusOK,
			wantUser:   "u-1",
		},
		{
			name:       "subject fallback",
			auth:       "Bearer " + signToken(t, jwt.SigningMethodHS256, cfg.Secret, jwt.MapClaims{"sub": "u-2", "iss": cfg.Issuer, "exp": exp}),
			wantStatus: http.StatusOK,
			wantUser:   "u-2",
		},
		{
			name:       "wrong secret",
			auth:       "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", jwt.MapClaims{"sub": "u-3", "iss": cfg.Issuer, "exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong algorithm",
			auth:       "Bearer " + signToken(t, jwt.SigningMethodHS512, cfg.Secret, jwt.MapClaims{"sub": "u-4", "iss": cfg.Issuer, "exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong issuer",
			auth:       "Bearer " + signToken(t, jwt.SigningMethodHS256, cfg.Secret, jwt.MapClaims{"sub": "u-5", "iss": "someone-else", "exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			auth:       "Bearer " + signToken(t, jwt.SigningMethodHS256, cfg.Secret, jwt.MapClaims{"sub": "u-6", "iss": cfg.Issuer, "exp": time.Now().Add(-time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", auth: "Basic Zm9vOmJhcg==", wantStatus: http.StatusUnauthorized},
		{name: "skip path", path: "/healthz", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = types.UserID(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			handler := JWTAuth(cfg, skipAuthPaths, zap.NewNop())(inner)

			path := tt.path
			if path == "" {
				path = "/api/v1/rerank"
			}
			r := httptest.NewRequest(http.MethodPost, path, nil)
			if tt.auth != "" {
				r.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, 1, 1, zap.NewNop())(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/provider", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/provider", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), `"code":"RATE_LIMITED"`)

	// 其他 IP 不受影响
	other := httptest.NewRequest(http.MethodGet, "/api/v1/provider", nil)
	other.RemoteAddr = "10.0.0.9:4000"
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, other)
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	handler := RateLimiter(context.Background(), 0, 0, zap.NewNop())(okHandler())

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := handlers.DecodeJSONBody(w, r, &body, nil); err != nil {
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := BodyLimit(32)(inner)

	small := httptest.NewRecorder()
	handler.ServeHTTP(small, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, small.Code)

	large := httptest.NewRecorder()
	payload := `{"query":"` + strings.Repeat("q", 64) + `"}`
	handler.ServeHTTP(large, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, large.Code)
}

func TestCORS(t *testing.T) {
	t.Run("allowed origin", func(t *testing.T) {
		handler := CORS([]string{"https://host.example"})(okHandler())
		r := httptest.NewRequest(http.MethodGet, "/api/v1/provider", nil)
		r.Header.Set("Origin", "https://host.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://host.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		handler := CORS([]string{"https://host.example"})(okHandler())
		r := httptest.NewRequest(http.MethodGet, "/api/v1/provider", nil)
		r.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		handler := CORS([]string{"https://host.example"})(okHandler())
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/rerank", nil)
		r.Header.Set("Origin", "https://host.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("preflight without configured origins", func(t *testing.T) {
		handler := CORS(nil)(okHandler())
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/rerank", nil)
		r.Header.Set("Origin", "https://host.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/rerank", "/api/v1/rerank"},
		{"/api/v1/models/schema", "/api/v1/models/schema"},
		{"/health", "/health"},
		{"/api/v1/things/12345", "/api/v1/things/:id"},
		{"/api/v1/things/550e8400-e29b-41d4-a716-446655440000", "/api/v1/things/:id"},
		{"/api/v1/things/deadbeefcafe", "/api/v1/things/:id"},
		{"/api/v1/unknown", "/api/v1/unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestOTelTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	handler := OTelTracing(tp.Tracer("test"))(failing)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/rerank", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /api/v1/rerank", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var status int64
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "http.response.status_code" {
			status = attr.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(http.StatusBadGateway), status)
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry("mwtest", reg, zap.NewNop())

	handler := MetricsMiddleware(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/things/42", nil))

	count, err := promtestutil.GatherAndCount(reg, "mwtest_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	var path string
	for _, mf := range families {
		if mf.GetName() != "mwtest_http_requests_total" {
			continue
		}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			if lp.GetName() == "path" {
				path = lp.GetValue()
			}
		}
	}
	assert.Equal(t, "/api/v1/things/:id", path)
}
