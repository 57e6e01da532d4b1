package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is an authenticated user as seen by the engine. The engine only
// ever uses it as a gate: present means mutations push to the remote store,
// absent means local-only.
type Identity struct {
	UserID string
	Token  string
}

// Provider resolves the current identity. Sign-in and sign-out happen
// elsewhere; the engine only observes presence or absence.
type Provider interface {
	// Current returns the signed-in identity, or nil when signed out.
	Current() (*Identity, error)
}

// Static always returns the same identity. Useful for tests and for
// wiring a freshly minted token without re-parsing it.
type Static struct {
	Identity *Identity
}

func (s *Static) Current() (*Identity, error) {
	return s.Identity, nil
}

// TokenProvider derives the identity from a stored bearer token: the JWT
// subject is the user id. The signature is not verified here; the server
// is the authority and rejects bad tokens on first use. An expired or
// malformed token reads as signed out, not as an error.
type TokenProvider struct {
	token string
	now   func() time.Time
}

func NewTokenProvider(token string) *TokenProvider {
	return &TokenProvider{token: token, now: time.Now}
}

func (p *TokenProvider) Current() (*Identity, error) {
	if p.token == "" {
		return nil, nil
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(p.token, claims); err != nil {
		return nil, nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, nil
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if p.now().After(exp.Time) {
			return nil, nil
		}
	}

	return &Identity{UserID: sub, Token: p.token}, nil
}

// String implements a loggable form without leaking the token.
func (id *Identity) String() string {
	if id == nil {
		return "<signed out>"
	}
	return fmt.Sprintf("user %s", id.UserID)
}
