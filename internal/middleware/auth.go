package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"authdemo/internal/models"
	"authdemo/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// claimsKey is the gin context key holding the current *models.Claims.
const claimsKey = "claims"

// SessionConfig carries the cookie and reissue settings of the session
// middleware.
type SessionConfig struct {
	CookieName string
	// MaxAge is the cookie lifetime.
	MaxAge time.Duration
	// UpdateInterval defers reissuing an unchanged token: only tokens older
	// than this get a fresh expiry.
	UpdateInterval time.Duration
	// Secure marks the session cookie as https-only.
	Secure bool
}

// Session creates a Gin middleware that loads the session token cookie, runs
// the claims refresh decision on it and reissues the cookie whenever the
// claims changed or the token aged past the update interval. Requests without
// a token, or with an invalid or expired one, pass through anonymously.
func Session(authService service.AuthService, cfg SessionConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(cfg.CookieName)
		if err != nil || tokenString == "" {
			c.Next()
			return
		}

		claims, err := authService.ParseToken(tokenString)
		if err != nil {
			// Expired or tampered tokens degrade to an anonymous request.
			logger.Debug("Discarding session token", zap.Error(err))
			c.Next()
			return
		}

		claims, changed := authService.Refresh(c.Request.Context(), claims, false)
		reissue := changed
		if !reissue && claims.IssuedAt != nil {
			reissue = time.Since(claims.IssuedAt.Time) > cfg.UpdateInterval
		}
		if reissue {
			if tok, _, err := authService.IssueToken(claims); err == nil {
				SetSessionCookie(c, cfg, tok)
			} else {
				logger.Error("Failed to reissue session token", zap.Error(err))
			}
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireSession creates a middleware for routes that need a signed-in user.
// Browsers get redirected to the sign-in page with the original URL as
// callback; API clients receive 401.
func RequireSession(signInPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentClaims(c); ok {
			c.Next()
			return
		}
		if wantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		cb := url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusSeeOther, signInPath+"?callbackUrl="+cb)
		c.Abort()
	}
}

// CurrentClaims returns the claims of the signed-in user, if any.
func CurrentClaims(c *gin.Context) (*models.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*models.Claims)
	return claims, ok && claims != nil
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(c *gin.Context, cfg SessionConfig, token string) {
	c.SetCookie(cfg.CookieName, token, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)
}

// ClearSessionCookie drops the session token cookie.
func ClearSessionCookie(c *gin.Context, cfg SessionConfig) {
	c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.Secure, true)
}

func wantsJSON(c *gin.Context) bool {
	// Accept may carry parameters or a q-list ("application/json; charset=utf-8").
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.ContentType() == "application/json"
}
