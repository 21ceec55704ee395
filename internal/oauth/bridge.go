package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gogotex/secrets/pkg/logger"
	"golang.org/x/oauth2"
)

// ErrOAuthFailure wraps every failure of an authorization-code exchange:
// provider-reported errors, state mismatch, network errors, timeouts and
// malformed profiles.
var ErrOAuthFailure = errors.New("oauth failure")

// Profile is the subset of the provider's userinfo document the app uses.
type Profile struct {
	Subject string
	Name    string
}

// Endpoints overrides provider discovery. Tests and non-OIDC providers set it.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// Config describes one OAuth2 client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	IssuerURL    string
	Scopes       []string
	Timeout      time.Duration
	Endpoints    *Endpoints
	HTTPClient   *http.Client
}

// Bridge drives a single provider's authorization-code flow.
type Bridge struct {
	name     string
	conf     *oauth2.Config
	provider *oidc.Provider
	timeout  time.Duration
	client   *http.Client
}

// NewBridge builds a Bridge. Without explicit Endpoints the provider's
// endpoints are discovered from IssuerURL.
func NewBridge(ctx context.Context, name string, cfg Config) (*Bridge, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s: client id and secret are required", name)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	ctx = oidc.ClientContext(ctx, client)

	var provider *oidc.Provider
	if cfg.Endpoints != nil {
		pc := &oidc.ProviderConfig{
			IssuerURL:   cfg.IssuerURL,
			AuthURL:     cfg.Endpoints.AuthURL,
			TokenURL:    cfg.Endpoints.TokenURL,
			UserInfoURL: cfg.Endpoints.UserInfoURL,
		}
		provider = pc.NewProvider(ctx)
	} else {
		dctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		p, err := oidc.NewProvider(dctx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to discover %s provider: %w", name, err)
		}
		provider = p
	}

	// client_secret_post; auto-detection would replay a rejected code
	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"profile"}
	}
	return &Bridge{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		provider: provider,
		timeout:  timeout,
		client:   client,
	}, nil
}

// Name identifies the provider, e.g. "google".
func (b *Bridge) Name() string { return b.name }

// AuthCodeURL is the consent URL the user agent is redirected to.
func (b *Bridge) AuthCodeURL(state string) string {
	return b.conf.AuthCodeURL(state)
}

// Complete handles the callback query: it checks state, exchanges the code
// and fetches the profile. The exchange and the profile fetch share one
// deadline. There is no retry.
func (b *Bridge) Complete(ctx context.Context, query url.Values, expectedState string) (*Profile, error) {
	if e := query.Get("error"); e != "" {
		return nil, fmt.Errorf("%w: provider returned %q", ErrOAuthFailure, e)
	}
	if expectedState == "" || query.Get("state") != expectedState {
		return nil, fmt.Errorf("%w: state mismatch", ErrOAuthFailure)
	}
	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrOAuthFailure)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	ctx = oidc.ClientContext(ctx, b.client)

	tok, err := b.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", ErrOAuthFailure, err)
	}
	info, err := b.provider.UserInfo(ctx, b.conf.TokenSource(ctx, tok))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch profile: %v", ErrOAuthFailure, err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("%w: profile has no subject", ErrOAuthFailure)
	}
	var extra struct {
		Name string `json:"name"`
	}
	if err := info.Claims(&extra); err != nil {
		// only the subject is required
		logger.Debugf("%s userinfo claims: %v", b.name, err)
	}
	return &Profile{Subject: info.Subject, Name: extra.Name}, nil
}
