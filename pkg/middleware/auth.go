package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/secrets/internal/models"
	"github.com/gogotex/secrets/internal/sessions"
	"github.com/gogotex/secrets/internal/tokens"
	"github.com/gogotex/secrets/pkg/logger"
)

// Context keys set by LoadSession.
const (
	ContextSessionKey = "session"
	ContextUserKey    = "user"
)

// SessionValidator is the minimal interface the middleware depends on
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*sessions.Session, error)
}

// UserLoader re-hydrates the user a session points at.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionCookie describes the signed, HTTP-only session cookie.
type SessionCookie struct {
	Name   string
	Secret string
	TTL    time.Duration
	Secure bool
}

// Set writes the cookie carrying sessionToken.
func (sc SessionCookie) Set(c *gin.Context, sessionToken string) error {
	signed, err := tokens.SignSessionToken(sc.Secret, sessionToken, sc.TTL)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, signed, int(sc.TTL.Seconds()), "/", "", sc.Secure, true)
	return nil
}

// Clear expires the cookie on the client.
func (sc SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", "", sc.Secure, true)
}

// Token returns the session token from a validly signed cookie, or "".
func (sc SessionCookie) Token(c *gin.Context) string {
	raw, err := c.Cookie(sc.Name)
	if err != nil || raw == "" {
		return ""
	}
	tok, err := tokens.ParseSessionToken(sc.Secret, raw)
	if err != nil {
		logger.Debugf("ignoring session cookie: %v", err)
		return ""
	}
	return tok
}

// LoadSession resolves the session cookie to a session and its user and
// stores both in the gin context. Any failure leaves the request anonymous.
func LoadSession(sc SessionCookie, sv SessionValidator, ul UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := sc.Token(c)
		if tok == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		sess, err := sv.Validate(ctx, tok)
		if err != nil {
			logger.Warnf("session lookup failed: %v", err)
			c.Next()
			return
		}
		if sess == nil {
			c.Next()
			return
		}
		u, err := ul.GetByID(ctx, sess.UserID)
		if err != nil {
			logger.Warnf("user lookup for session failed: %v", err)
			c.Next()
			return
		}
		if u == nil {
			c.Next()
			return
		}
		c.Set(ContextSessionKey, sess)
		c.Set(ContextUserKey, u)
		c.Next()
	}
}

// RequireSession redirects anonymous requests to loginPath.
func RequireSession(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user loaded by LoadSession.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// CurrentSession returns the session loaded by LoadSession.
func CurrentSession(c *gin.Context) (*sessions.Session, bool) {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*sessions.Session)
	return s, ok && s != nil
}
