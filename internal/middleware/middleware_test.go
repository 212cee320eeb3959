package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/keyprice_api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthorizer struct {
	authorizeF func(apiKey, clientID string) (bool, error)
}

func (f *fakeAuthorizer) Authorize(_ context.Context, apiKey, clientID string) (bool, error) {
	return f.authorizeF(apiKey, clientID)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func newAPIKeyRouter(auth KeyAuthorizer, rl *InvalidAuthRateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(NewAPIKeyMiddleware(auth, rl).Handle())
	r.GET("/p", func(c *gin.Context) {
		c.String(http.StatusOK, "%s %v", GetClientID(c), c.GetBool("is_admin"))
	})
	return r
}

func doRequest(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyMiddleware(t *testing.T) {
	auth := &fakeAuthorizer{authorizeF: func(apiKey, clientID string) (bool, error) {
		switch apiKey {
		case "good":
			return false, nil
		case "admin":
			return true, nil
		case "old":
			return false, utils.ErrAPIKeyExpired
		case "taken":
			return false, utils.ErrClientMismatch
		case "broken":
			return false, errors.New("db down")
		}
		return false, utils.ErrInvalidAPIKey
	}}
	rl := NewInvalidAuthRateLimiter(100, time.Minute)
	defer rl.Stop()
	r := newAPIKeyRouter(auth, rl)

	rec := doRequest(r, map[string]string{HeaderAPIKey: "good", HeaderClientID: "c1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1 false", rec.Body.String())

	rec = doRequest(r, map[string]string{HeaderAPIKey: "admin", HeaderClientID: "root"})
	assert.Equal(t, "root true", rec.Body.String())

	tests := []struct {
		headers map[string]string
		status  int
		code    string
	}{
		{map[string]string{}, 401, "MISSING_CREDENTIALS"},
		{map[string]string{HeaderAPIKey: "good"}, 401, "MISSING_CREDENTIALS"},
		{map[string]string{HeaderAPIKey: "nope", HeaderClientID: "c1"}, 401, "INVALID_API_KEY"},
		{map[string]string{HeaderAPIKey: "old", HeaderClientID: "c1"}, 401, "API_KEY_EXPIRED"},
		{map[string]string{HeaderAPIKey: "taken", HeaderClientID: "c1"}, 401, "CLIENT_MISMATCH"},
		{map[string]string{HeaderAPIKey: "broken", HeaderClientID: "c1"}, 500, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		rec := doRequest(r, tt.headers)
		assert.Equal(t, tt.status, rec.Code, tt.code)
		assert.Equal(t, tt.code, errorCode(t, rec))
	}
}

func TestAPIKeyMiddleware_RateLimitsInvalidAttempts(t *testing.T) {
	auth := &fakeAuthorizer{authorizeF: func(string, string) (bool, error) {
		return false, utils.ErrInvalidAPIKey
	}}
	rl := NewInvalidAuthRateLimiter(5, time.Minute)
	defer rl.Stop()
	r := newAPIKeyRouter(auth, rl)

	headers := map[string]string{HeaderAPIKey: "bad", HeaderClientID: "c1"}
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, doRequest(r, headers).Code)
	}
	rec := doRequest(r, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(t, rec))
}

func TestInvalidAuthRateLimiter_WindowResets(t *testing.T) {
	rl := NewInvalidAuthRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "limits are per IP")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
	rl.Stop()
	rl.Stop()
}

func TestAdminMiddleware(t *testing.T) {
	secret := "jwt-secret"
	r := gin.New()
	r.Use(NewAdminMiddleware("admin-key", secret).Handle())
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("admin_auth")) })

	rec := doRequest(r, map[string]string{HeaderAdminKey: "admin-key"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key", rec.Body.String())

	token, err := utils.GenerateJWT([]byte(secret), 1, "ops@example.com", time.Hour)
	require.NoError(t, err)
	rec = doRequest(r, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jwt", rec.Body.String())

	rec = doRequest(r, map[string]string{HeaderAdminKey: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(r, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(r, map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.GenerateJWT([]byte("other-secret"), 1, "ops@example.com", time.Hour)
	require.NoError(t, err)
	rec = doRequest(r, map[string]string{"Authorization": "Bearer " + other})
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.POST("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/p", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Api-Key")
}

func TestLoggingMiddleware_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, utils.GetRequestID(c)) })

	rec := doRequest(r, nil)
	assert.Len(t, rec.Body.String(), 8)
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Request-Id"))
}
