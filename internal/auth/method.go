package auth

import "fmt"

// Kind distinguishes the authentication strategies.
type Kind int

const (
	KindLocal Kind = iota + 1
	KindOAuth
)

// Method is a tagged variant: Local, or OAuthProvider(name).
type Method struct {
	Kind     Kind
	Provider string
}

// Local is username+password authentication against the identity store.
func Local() Method { return Method{Kind: KindLocal} }

// OAuthProvider is an authorization-code flow against the named provider.
func OAuthProvider(name string) Method { return Method{Kind: KindOAuth, Provider: name} }

func (m Method) String() string {
	switch m.Kind {
	case KindLocal:
		return "local"
	case KindOAuth:
		return "oauth:" + m.Provider
	default:
		return fmt.Sprintf("unknown(%d)", int(m.Kind))
	}
}
