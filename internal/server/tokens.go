package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var errMalformedAuthorization = errors.New("malformed authorization header")

// Identity is the caller extracted from a verified access token.
type Identity struct {
	UserID string
	Email  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// JWKSVerifier validates Cognito access tokens against the pool's JWKS.
type JWKSVerifier struct {
	cache   *jwk.Cache
	jwksURL string
}

func NewJWKSVerifier(cache *jwk.Cache, jwksURL string) *JWKSVerifier {
	return &JWKSVerifier{cache: cache, jwksURL: jwksURL}
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	parsed, err := jwt.Parse(
		[]byte(token),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	// Use Subject() for the standard "sub" claim
	userID, ok := parsed.Subject()
	if !ok || userID == "" {
		return nil, errors.New("no user ID in JWT subject claim")
	}

	identity := &Identity{UserID: userID}

	// email is optional; Cognito access tokens usually omit it
	var email string
	if err := parsed.Get("email", &email); err == nil {
		identity.Email = email
	}

	return identity, nil
}
