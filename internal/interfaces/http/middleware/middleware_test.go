package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/autotraderhub/autotrader/internal/infrastructure/auth"
	"github.com/autotraderhub/autotrader/internal/infrastructure/permission"
	"github.com/autotraderhub/autotrader/internal/infrastructure/ratelimit"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/testutil"
	"github.com/autotraderhub/autotrader/internal/shared/authorization"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func echoUser(c *gin.Context) {
	userID, role, _ := authorization.UserFromContext(c)
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// =====================================================================
// Auth
// =====================================================================

func TestRequireAuth(t *testing.T) {
	jwtSvc := auth.NewJWTService(testSecret, 15)
	token, _, err := jwtSvc.Generate(42, authorization.RoleUser)
	require.NoError(t, err)

	engine := gin.New()
	engine.GET("/me", NewAuthMiddleware(jwtSvc, testutil.NewMockLogger()).RequireAuth(), echoUser)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}

			w := serve(engine, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42,"role":"user"}`, w.Body.String())
			}
		})
	}
}

// =====================================================================
// Permission
// =====================================================================

func newTestEnforcer(t *testing.T) *permission.Enforcer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	e, err := permission.NewEnforcer(db, "", testutil.NewMockLogger())
	require.NoError(t, err)
	require.NoError(t, permission.InitDefaultPolicies(e, testutil.NewMockLogger()))
	return e
}

type failingEnforcer struct{}

func (failingEnforcer) Enforce(subject, resource, action string) (bool, error) {
	return false, fmt.Errorf("adapter offline")
}

func TestRequirePermission(t *testing.T) {
	perm := NewPermissionMiddleware(newTestEnforcer(t), testutil.NewMockLogger())

	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set(constants.ContextKeyUserID, uint(5))
				c.Set(constants.ContextKeyUserRole, role)
			}
			c.Next()
		}
	}

	tests := []struct {
		name       string
		role       string
		resource   string
		action     string
		wantStatus int
	}{
		{"user reads portfolio", "user", permission.ResourcePortfolio, permission.ActionRead, http.StatusOK},
		{"user writes connection", "user", permission.ResourceBrokerConnection, permission.ActionWrite, http.StatusOK},
		{"user writes portfolio", "user", permission.ResourcePortfolio, permission.ActionWrite, http.StatusForbidden},
		{"admin inherits user", "admin", permission.ResourceBrokerConnection, permission.ActionDelete, http.StatusOK},
		{"unauthenticated", "", permission.ResourcePortfolio, permission.ActionRead, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.GET("/x", withRole(tt.role), perm.RequirePermission(tt.resource, tt.action), echoUser)

			w := serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequirePermission_EnforcerError(t *testing.T) {
	perm := NewPermissionMiddleware(failingEnforcer{}, testutil.NewMockLogger())
	engine := gin.New()
	engine.GET("/x", func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, uint(5))
		c.Set(constants.ContextKeyUserRole, "user")
	}, perm.RequirePermission(permission.ResourcePortfolio, permission.ActionRead), echoUser)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// =====================================================================
// Rate limit
// =====================================================================

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string, limits ratelimit.Limits) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, fmt.Errorf("redis: connection refused")
}

func (brokenLimiter) Reset(ctx context.Context, key string) error {
	return nil
}

func rateLimitedEngine(limiter ratelimit.RateLimiter, limits ratelimit.Limits) *gin.Engine {
	rl := NewRateLimiter(limiter, limits, testutil.NewMockLogger())
	engine := gin.New()
	engine.POST("/broker-connections", func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			var userID uint
			_, _ = fmt.Sscan(id, &userID)
			c.Set(constants.ContextKeyUserID, userID)
		}
	}, rl.Limit(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return engine
}

func postAs(engine *gin.Engine, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/broker-connections", nil)
	req.Header.Set("X-Test-User", user)
	return serve(engine, req)
}

func TestRateLimiter_PerUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine := rateLimitedEngine(ratelimit.NewRedisRateLimiter(client), ratelimit.Limits{PerMinute: 2})

	assert.Equal(t, http.StatusCreated, postAs(engine, "1").Code)
	assert.Equal(t, http.StatusCreated, postAs(engine, "1").Code)

	denied := postAs(engine, "1")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))
	assert.Equal(t, "0", denied.Header().Get("X-RateLimit-Remaining"))

	// another user has its own budget
	assert.Equal(t, http.StatusCreated, postAs(engine, "2").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	engine := rateLimitedEngine(brokenLimiter{}, ratelimit.Limits{PerMinute: 1})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, postAs(engine, "1").Code)
	}
}

func TestRateLimiter_NilLimiterDisabled(t *testing.T) {
	engine := rateLimitedEngine(nil, ratelimit.Limits{PerMinute: 1})

	assert.Equal(t, http.StatusCreated, postAs(engine, "1").Code)
	assert.Equal(t, http.StatusCreated, postAs(engine, "1").Code)
}

// =====================================================================
// Recovery, request ID, CORS
// =====================================================================

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery(testutil.NewMockLogger()))
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer secret")
	w := serve(engine, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.False(t, resp.Success)
}

func TestMaskedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer secret-token")
	req.Header.Set("Cookie", "session=abc")
	req.Header.Set("Accept", "application/json")

	joined := fmt.Sprint(maskedHeaders(req))

	assert.NotContains(t, joined, "secret-token")
	assert.NotContains(t, joined, "session=abc")
	assert.Contains(t, joined, "application/json")
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, w.Header().Get(constants.HeaderXRequestID))
	assert.Equal(t, w.Header().Get(constants.HeaderXRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(constants.HeaderXRequestID, "req-123")
	w = serve(engine, req)
	assert.Equal(t, "req-123", w.Body.String())
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"https://app.example.com"}))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(engine, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(engine, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w = serve(engine, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
