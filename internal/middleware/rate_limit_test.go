// internal/middleware/rate_limit_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(limit gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limit)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doRequest(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthRateLimitCeiling(t *testing.T) {
	r := limitedRouter(AuthRateLimit(3))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r))
}

func TestGeneralRateLimitFallbackCeiling(t *testing.T) {
	// Zero config falls back to the default ceiling instead of blocking
	// everything.
	r := limitedRouter(GeneralRateLimit(0))
	assert.Equal(t, http.StatusOK, doRequest(r))
}

func TestValidationRateLimitAllowsBurst(t *testing.T) {
	r := limitedRouter(ValidationRateLimit(20))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r))
}
