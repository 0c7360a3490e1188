package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func signTest(t *testing.T, role string, dur time.Duration) string {
	t.Helper()
	tok, err := SignToken(testSecret, uuid.New(), uuid.New(), role, dur)
	require.NoError(t, err)
	return tok
}

func ginTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(JWTAuth(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		sess, ok := SessionFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"org_id": sess.OrgID.String(), "role": sess.Role})
	})
	r.GET("/manager", RequireRole(RoleManager, RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── JWT ──────────────────────────────────────────────────────────────────────

func TestProtectedEndpoint_NoToken(t *testing.T) {
	w := doGet(ginTestRouter(), "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_ValidToken(t *testing.T) {
	w := doGet(ginTestRouter(), "/protected", signTest(t, RolePicker, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"picker"`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestProtectedEndpoint_ExpiredToken(t *testing.T) {
	w := doGet(ginTestRouter(), "/protected", signTest(t, RolePicker, -time.Second))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_WrongSecret(t *testing.T) {
	tok, err := SignToken("another-secret", uuid.New(), uuid.New(), RoleAdmin, time.Hour)
	require.NoError(t, err)
	w := doGet(ginTestRouter(), "/protected", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_MissingOrg(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": uuid.New().String(), "role": RoleAdmin,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := doGet(ginTestRouter(), "/protected", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := ginTestRouter()
	assert.Equal(t, http.StatusForbidden, doGet(r, "/manager", signTest(t, RolePicker, time.Hour)).Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/manager", signTest(t, RoleManager, time.Hour)).Code)
}

// ── Request ID ───────────────────────────────────────────────────────────────

func TestRequestID_PropagatesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

// ── Rate limiter ─────────────────────────────────────────────────────────────

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(2, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doGet(r, "/", "").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/", "").Code)
	w := doGet(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := &rateLimiter{entries: map[string]*rateEntry{}, limit: 1, window: time.Second, lastPurge: time.Now()}
	now := time.Now()

	ok, _ := rl.allow("ip:1", now)
	assert.True(t, ok)
	ok, _ = rl.allow("ip:1", now)
	assert.False(t, ok)
	ok, _ = rl.allow("ip:1", now.Add(2*time.Second))
	assert.True(t, ok)
}

// ── Recovery / CORS ──────────────────────────────────────────────────────────

func TestRecovery_HidesPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom: secret detail") })

	w := doGet(r, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestCORS_AllowedOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:3000, https://app.example.com"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
