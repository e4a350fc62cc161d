package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fieldops/internal/config"
	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/utils"
)

const secret = "test-secret"

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func whoami(c echo.Context) error {
	if _, ok := UserID(c); !ok {
		return c.String(http.StatusOK, "anon")
	}
	return c.String(http.StatusOK, string(Role(c))+":"+subject(c))
}

func TestJWTAuthAcceptsAccessToken(t *testing.T) {
	at, err := utils.NewAccessToken(secret, 5, model.RoleManager, 5)
	require.NoError(t, err)

	c, rec := newCtx(http.MethodGet, "/v1/me")
	c.Request().Header.Set("Authorization", "Bearer "+at.Token)
	require.NoError(t, JWTAuth(secret)(whoami)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manager:5", rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	other, err := utils.NewAccessToken("other-secret", 5, model.RoleAdmin, 5)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + other.Token,
		"garbage":      "Bearer not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			c, rec := newCtx(http.MethodGet, "/v1/me")
			if header != "" {
				c.Request().Header.Set("Authorization", header)
			}
			require.NoError(t, JWTAuth(secret)(whoami)(c))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	c, rec := newCtx(http.MethodPost, "/v1/auth/logout")
	c.Request().Header.Set("Authorization", "Bearer junk")
	require.NoError(t, OptionalJWT(secret)(whoami)(c))
	assert.Equal(t, "anon", rec.Body.String())

	at, err := utils.NewAccessToken(secret, 9, model.RoleStaff, 5)
	require.NoError(t, err)
	c, rec = newCtx(http.MethodPost, "/v1/auth/logout")
	c.Request().Header.Set("Authorization", "Bearer "+at.Token)
	require.NoError(t, OptionalJWT(secret)(whoami)(c))
	assert.Equal(t, "staff:9", rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(model.RoleAdmin, model.RoleManager)

	c, rec := newCtx(http.MethodDelete, "/v1/projects/1")
	c.Set(ctxUserID, uint64(3))
	c.Set(ctxRole, model.RoleStaff)
	require.NoError(t, mw(whoami)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	c, rec = newCtx(http.MethodDelete, "/v1/projects/1")
	c.Set(ctxUserID, uint64(1))
	c.Set(ctxRole, model.RoleAdmin)
	require.NoError(t, mw(whoami)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsLabelsByRoute(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/projects/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/v1/boom", func(echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })
	e.GET("/v1/fail", func(echo.Context) error { return errors.New("db down") })

	for _, path := range []string{"/v1/projects/1", "/v1/projects/2", "/v1/boom", "/v1/fail"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/projects/:id", "204")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/boom", "418")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/fail", "500")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "fieldops_http_request_duration_seconds")
}

func TestRateKeyStrategies(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/v1/equipment/4")
	c.Request().RemoteAddr = "10.0.0.7:5555"
	c.SetPath("/v1/equipment/:id")
	c.Set(ctxUserID, uint64(12))

	key := func(strategy string) string {
		return rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
	}
	assert.Equal(t, "rl:ip:10.0.0.7", key("ip"))
	assert.Equal(t, "rl:user:12", key("user"))
	assert.Equal(t, "rl:ip:10.0.0.7:user:12", key("ip_user"))
	assert.Equal(t, "rl:ip:10.0.0.7:user:12:route:GET /v1/equipment/:id", key("ip_user_route"))
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	h := func(c echo.Context) error { return c.String(http.StatusOK, "through") }

	c, rec := newCtx(http.MethodGet, "/v1/equipment")
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)(h)(c))
	assert.Equal(t, "through", rec.Body.String())

	c, rec = newCtx(http.MethodGet, "/v1/equipment")
	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: false}, nil)(h)(c))
	assert.Equal(t, "through", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheKeyAndScope(t *testing.T) {
	cfg := config.CacheConfig{
		Methods:     map[string]bool{"GET": true},
		Prefix:      "c",
		KeyStrategy: "route_query",
		Paths:       []string{"/v1/equipment"},
	}

	a, _ := newCtx(http.MethodGet, "/v1/equipment/1?x=1")
	b, _ := newCtx(http.MethodGet, "/v1/equipment/2?x=1")
	assert.NotEqual(t, cacheKey(cfg, a), cacheKey(cfg, b))
	assert.True(t, strings.HasPrefix(cacheKey(cfg, a), "c:"))

	a.Set(ctxUserID, uint64(1))
	b2, _ := newCtx(http.MethodGet, "/v1/equipment/1?x=1")
	b2.Set(ctxUserID, uint64(2))
	assert.Equal(t, cacheKey(cfg, a), cacheKey(cfg, b2))
	cfg.KeyStrategy = "route_query_user"
	assert.NotEqual(t, cacheKey(cfg, a), cacheKey(cfg, b2))

	assert.True(t, cacheable(cfg, a))
	post, _ := newCtx(http.MethodPost, "/v1/equipment")
	assert.False(t, cacheable(cfg, post))
	inbox, _ := newCtx(http.MethodGet, "/v1/communications/inbox")
	assert.False(t, cacheable(cfg, inbox))
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"items":[]}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}
