package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gogotex/secrets/internal/models"
	"github.com/gogotex/secrets/internal/oauth"
	"github.com/gogotex/secrets/pkg/logger"
	"github.com/gogotex/secrets/pkg/metrics"
)

// StateCookie holds the OAuth state value between the redirect to the
// provider and the callback.
const StateCookie = "oauth_state"

var ErrUnsupportedMethod = errors.New("unsupported authentication method")

// Accounts is the part of the user service the authenticator needs.
type Accounts interface {
	Verify(ctx context.Context, username, password string) (*models.User, error)
	FindOrCreateByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error)
}

// Provider is an OAuth2 provider such as *oauth.Bridge.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Complete(ctx context.Context, query url.Values, expectedState string) (*oauth.Profile, error)
}

// Authenticator resolves a request to a user through one Method.
type Authenticator struct {
	accounts  Accounts
	providers map[string]Provider
}

func NewAuthenticator(accounts Accounts, providers ...Provider) *Authenticator {
	a := &Authenticator{accounts: accounts, providers: make(map[string]Provider)}
	for _, p := range providers {
		if p != nil {
			a.providers[p.Name()] = p
		}
	}
	return a
}

// Provider returns the registered provider with the given name.
func (a *Authenticator) Provider(name string) (Provider, bool) {
	p, ok := a.providers[name]
	return p, ok
}

// Authenticate dispatches on m. Local reads the username and password form
// fields; OAuth completes the callback carried by r and finds or creates the
// matching user.
func (a *Authenticator) Authenticate(ctx context.Context, m Method, r *http.Request) (*models.User, error) {
	u, err := a.authenticate(ctx, m, r)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.AuthAttempts.WithLabelValues(m.String(), outcome).Inc()
	return u, err
}

func (a *Authenticator) authenticate(ctx context.Context, m Method, r *http.Request) (*models.User, error) {
	switch m.Kind {
	case KindLocal:
		return a.accounts.Verify(ctx, r.PostFormValue("username"), r.PostFormValue("password"))
	case KindOAuth:
		p, ok := a.providers[m.Provider]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, m)
		}
		expected := ""
		if c, err := r.Cookie(StateCookie); err == nil {
			expected = c.Value
		}
		profile, err := p.Complete(ctx, r.URL.Query(), expected)
		if err != nil {
			return nil, err
		}
		logger.Debugf("oauth profile from %s: sub=%s name=%q", m.Provider, profile.Subject, profile.Name)
		return a.resolve(ctx, m.Provider, profile)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, m)
	}
}

func (a *Authenticator) resolve(ctx context.Context, provider string, profile *oauth.Profile) (*models.User, error) {
	switch provider {
	case "google":
		u, created, err := a.accounts.FindOrCreateByGoogleID(ctx, profile.Subject)
		if err != nil {
			return nil, err
		}
		if created {
			logger.Infof("created user %s for google subject", u.ID)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("%w: no identity mapping for %s", ErrUnsupportedMethod, provider)
	}
}
