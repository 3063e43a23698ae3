package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/supp-dex/instance-api/internal/adapter"
	"github.com/supp-dex/instance-api/internal/api/middleware"
	"github.com/supp-dex/instance-api/internal/mocks"
	"github.com/supp-dex/instance-api/internal/session"
)

func newRateLimitRouter(limiter *mocks.MockLimiter) *gin.Engine {
	mgr := session.NewManager(session.NewMemoryStore(16, time.Hour), adapter.NewClock())
	router := gin.New()
	router.POST("/limited", middleware.Session(mgr), middleware.RateLimit(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRateLimit_Allows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLimiter := mocks.NewMockLimiter(ctrl)
	var seenKey string
	mockLimiter.
		EXPECT().
		Allow(gomock.Any()).
		DoAndReturn(func(key string) (bool, time.Duration) {
			seenKey = key
			return true, 0
		})

	router := newRateLimitRouter(mockLimiter)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/limited", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Key is session token plus the proxy-reported origin
	assert.True(t, strings.HasSuffix(seenKey, ":9.9.9.9"), "key %q should end with the origin", seenKey)
	assert.Greater(t, strings.Index(seenKey, ":"), 0, "key %q should start with the session token", seenKey)
}

func TestRateLimit_Denies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLimiter := mocks.NewMockLimiter(ctrl)
	mockLimiter.EXPECT().Allow(gomock.Any()).Return(false, 2500*time.Millisecond)

	router := newRateLimitRouter(mockLimiter)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/limited", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
	assert.Contains(t, w.Body.String(), `"retryAfterMs":2500`)
}

func TestRateLimit_OriginFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLimiter := mocks.NewMockLimiter(ctrl)
	var seenKey string
	mockLimiter.
		EXPECT().
		Allow(gomock.Any()).
		DoAndReturn(func(key string) (bool, time.Duration) {
			seenKey = key
			return true, 0
		})

	router := newRateLimitRouter(mockLimiter)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/limited", nil)
	req.Header.Set("CF-Connecting-IP", "8.8.4.4")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasSuffix(seenKey, ":8.8.4.4"), "key %q should fall back to CF-Connecting-IP", seenKey)
}
