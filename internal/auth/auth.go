// Package auth verifies HS256 JWTs minted by the external auth service and
// extracts the caller identity (sub claim). The provider is consulted once
// per request or handshake; seat authority is derived from session state
// afterwards, never from further provider calls.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type ctxKey struct{}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Identity returns the sub claim of a valid token.
func (v *Verifier) Identity(token string) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// FromRequest pulls the identity out of the Authorization header or, for
// websocket handshakes where headers are awkward from browsers, the token
// query parameter. Missing or bad tokens yield "" - the caller proceeds as
// a spectator.
func (v *Verifier) FromRequest(r *http.Request) string {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return ""
	}
	identity, err := v.Identity(token)
	if err != nil {
		return ""
	}
	return identity
}

// Require is middleware for routes that need an authenticated caller.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		identity, err := v.Identity(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// IdentityFromContext returns the identity Require stored, or "".
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(ctxKey{}).(string)
	return identity
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
