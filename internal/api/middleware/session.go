package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/supp-dex/instance-api/internal/session"
)

const (
	SESSION_ID_KEY contextKey = "session_id"
	SESSION_KEY    contextKey = "session"

	// SessionCookieName is the cookie carrying the opaque session token
	SessionCookieName = "sid"

	// sessionCookieMaxAge matches the session TTL default of 7 days
	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// Session returns a gin middleware that resolves or creates the visitor
// session. New tokens are handed back as an http-only, SameSite=Lax cookie
// scoped to the whole path.
func Session(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(SessionCookieName)
		if token == "" {
			token = c.GetHeader("X-Session-ID")
		}

		sid, state, created := mgr.Resolve(token)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, sid, sessionCookieMaxAge, "/", "", false, true)
		}

		c.Set(SESSION_ID_KEY, sid)
		c.Set(SESSION_KEY, state)

		c.Next()
	}
}

// SessionID returns the session token resolved for this request
func SessionID(c *gin.Context) string {
	if sid, ok := c.Get(SESSION_ID_KEY); ok {
		if s, ok := sid.(string); ok {
			return s
		}
	}
	return ""
}

// SessionState returns the session record resolved for this request
func SessionState(c *gin.Context) *session.State {
	if v, ok := c.Get(SESSION_KEY); ok {
		if s, ok := v.(*session.State); ok {
			return s
		}
	}
	return nil
}
