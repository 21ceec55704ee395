package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gogotex/secrets/internal/auth"
	"github.com/gogotex/secrets/internal/models"
	"github.com/gogotex/secrets/internal/sessions"
	"github.com/gogotex/secrets/internal/users"
	"github.com/gogotex/secrets/pkg/logger"
	"github.com/gogotex/secrets/pkg/metrics"
	"github.com/gogotex/secrets/pkg/middleware"
)

// Error codes carried in the ?error= query parameter of the login and
// registration pages.
const (
	errDuplicate   = "duplicate"
	errInvalid     = "invalid"
	errUnavailable = "unavailable"
	errOAuth       = "oauth"
)

var errorMessages = map[string]string{
	errDuplicate:   "That username is already registered.",
	errInvalid:     "Invalid username or password.",
	errUnavailable: "The service is temporarily unavailable, please try again.",
	errOAuth:       "Google sign-in failed.",
}

const googleProvider = "google"

// credentialsForm is the body of POST /register and POST /login.
type credentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	authn       *auth.Authenticator
	cookie      middleware.SessionCookie
	limit       []gin.HandlerFunc
}

func NewAuthHandler(u *users.Service, s *sessions.Service, a *auth.Authenticator, cookie middleware.SessionCookie) *AuthHandler {
	return &AuthHandler{usersSvc: u, sessionsSvc: s, authn: a, cookie: cookie}
}

// WithRateLimit guards the credential-accepting POST routes with mw.
func (h *AuthHandler) WithRateLimit(mw gin.HandlerFunc) *AuthHandler {
	if mw != nil {
		h.limit = append(h.limit, mw)
	}
	return h
}

// Register mounts the page and authentication routes. LoadSession must already
// be installed on r.
func (h *AuthHandler) Register(r gin.IRouter) {
	r.GET("/", h.Home)
	r.GET("/register", h.RegisterForm)
	r.POST("/register", h.guarded(h.RegisterSubmit)...)
	r.GET("/login", h.LoginForm)
	r.POST("/login", h.guarded(h.LoginSubmit)...)
	r.GET("/secrets", middleware.RequireSession("/login"), h.Secrets)
	r.GET("/logout", h.Logout)
	r.GET("/auth/google", h.GoogleStart)
	r.GET("/auth/google/secrets", h.GoogleCallback)
}

func (h *AuthHandler) guarded(fn gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(h.limit)+1)
	chain = append(chain, h.limit...)
	return append(chain, fn)
}

func (h *AuthHandler) Home(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	c.HTML(http.StatusOK, "home.html", gin.H{"User": u})
}

func (h *AuthHandler) RegisterForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", h.formData(c))
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", h.formData(c))
}

func (h *AuthHandler) formData(c *gin.Context) gin.H {
	_, google := h.authn.Provider(googleProvider)
	return gin.H{
		"Error":         errorMessages[c.Query("error")],
		"GoogleEnabled": google,
	}
}

// RegisterSubmit creates a local account and logs the new user in.
func (h *AuthHandler) RegisterSubmit(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		c.Redirect(http.StatusSeeOther, "/register?error="+errInvalid)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.usersSvc.CreateAccount(ctx, form.Username, form.Password); err != nil {
		code := errUnavailable
		switch {
		case errors.Is(err, users.ErrDuplicateAccount):
			code = errDuplicate
		case errors.Is(err, users.ErrInvalidInput):
			code = errInvalid
		default:
			logger.Errorf("create account: %v", err)
		}
		metrics.Registrations.WithLabelValues(code).Inc()
		c.Redirect(http.StatusSeeOther, "/register?error="+code)
		return
	}
	metrics.Registrations.WithLabelValues("success").Inc()

	u, err := h.authn.Authenticate(ctx, auth.Local(), c.Request)
	if err != nil {
		logger.Errorf("login after registration: %v", err)
		c.Redirect(http.StatusSeeOther, "/login?error="+failureCode(err))
		return
	}
	h.startSession(c, u, http.StatusSeeOther)
}

// LoginSubmit verifies a username and password. Unknown users and wrong
// passwords produce the same redirect.
func (h *AuthHandler) LoginSubmit(c *gin.Context) {
	u, err := h.authn.Authenticate(c.Request.Context(), auth.Local(), c.Request)
	if err != nil {
		code := failureCode(err)
		if code == errUnavailable {
			logger.Errorf("login: %v", err)
		}
		c.Redirect(http.StatusSeeOther, "/login?error="+code)
		return
	}
	h.startSession(c, u, http.StatusSeeOther)
}

func (h *AuthHandler) Secrets(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	logger.Debugf("secrets page for user %s", u.ID)
	c.HTML(http.StatusOK, "secrets.html", gin.H{"User": u})
}

// Logout destroys the server-side session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if tok := h.cookie.Token(c); tok != "" {
		if err := h.sessionsSvc.Destroy(c.Request.Context(), tok); err != nil {
			logger.Warnf("logout: %v", err)
		} else {
			metrics.SessionsDestroyed.Inc()
		}
	}
	h.cookie.Clear(c)
	c.Redirect(http.StatusFound, "/")
}

// GoogleStart redirects to the provider's consent page with a fresh state.
func (h *AuthHandler) GoogleStart(c *gin.Context) {
	p, ok := h.authn.Provider(googleProvider)
	if !ok {
		c.Redirect(http.StatusFound, "/login?error="+errOAuth)
		return
	}
	state, err := newState()
	if err != nil {
		logger.Errorf("oauth state: %v", err)
		c.Redirect(http.StatusFound, "/login?error="+errUnavailable)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.StateCookie, state, 600, "/auth/google", "", h.cookie.Secure, true)
	c.Redirect(http.StatusFound, p.AuthCodeURL(state))
}

// GoogleCallback completes the authorization-code flow. Any failure sends the
// browser back to /login without creating a user or a session.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	u, err := h.authn.Authenticate(c.Request.Context(), auth.OAuthProvider(googleProvider), c.Request)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.StateCookie, "", -1, "/auth/google", "", h.cookie.Secure, true)
	if err != nil {
		logger.Warnf("google callback: %v", err)
		code := errOAuth
		if failureCode(err) == errUnavailable {
			code = errUnavailable
		}
		c.Redirect(http.StatusFound, "/login?error="+code)
		return
	}
	h.startSession(c, u, http.StatusFound)
}

// startSession replaces any current session with a new one for u and
// redirects to /secrets.
func (h *AuthHandler) startSession(c *gin.Context, u *models.User, status int) {
	ctx := c.Request.Context()
	if prev, ok := middleware.CurrentSession(c); ok {
		if err := h.sessionsSvc.Destroy(ctx, prev.Token); err != nil {
			logger.Warnf("destroy previous session: %v", err)
		}
	}
	tok, err := h.sessionsSvc.Establish(ctx, u.ID)
	if err != nil {
		logger.Errorf("establish session: %v", err)
		c.Redirect(status, "/login?error="+errUnavailable)
		return
	}
	if err := h.cookie.Set(c, tok); err != nil {
		logger.Errorf("set session cookie: %v", err)
		_ = h.sessionsSvc.Destroy(ctx, tok)
		c.Redirect(status, "/login?error="+errUnavailable)
		return
	}
	metrics.SessionsEstablished.Inc()
	c.Redirect(status, "/secrets")
}

// failureCode maps an authentication error to a query error code without
// revealing which credential was wrong.
func failureCode(err error) string {
	switch {
	case errors.Is(err, users.ErrStorageUnavailable), errors.Is(err, sessions.ErrStoreUnavailable):
		return errUnavailable
	default:
		return errInvalid
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
