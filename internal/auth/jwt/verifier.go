// Package jwt verifies bearer tokens issued by the hosted authentication
// system. Tokens are never minted here.
package jwt

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// Claims represents the claims of a hosted-auth access token
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TokenVerifier is satisfied by Verifier; handlers depend on it so tests
// can substitute a stub
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// Verifier validates access tokens either with the shared HS256 secret of
// the auth system or, when a JWKS URL is configured, with its RS256 keys.
type Verifier struct {
	secret   []byte
	jwks     keyfunc.Keyfunc
	issuer   string
	audience string
}

// NewVerifier creates a verifier from identity configuration. With a JWKS
// URL the key set is fetched immediately and refreshed in the background
// until ctx is cancelled.
func NewVerifier(ctx context.Context, cfg *config.IdentityConfig) (*Verifier, error) {
	v := &Verifier{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}

	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS client for %s: %w", cfg.JWKSURL, err)
		}
		v.jwks = jwks
		return v, nil
	}

	if len(v.secret) == 0 {
		return nil, stderrors.New("identity.jwt_secret or identity.jwks_url is required")
	}
	return v, nil
}

// Verify validates a token string and returns its claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var keyFunc jwt.Keyfunc
	if v.jwks != nil {
		opts = append(opts, jwt.WithValidMethods([]string{"RS256", "ES256"}))
		keyFunc = v.jwks.Keyfunc
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{"HS256"}))
		keyFunc = func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.TokenInvalid()
			}
			return v.secret, nil
		}
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc, opts...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}

// ExtractBearer returns the token part of an "Authorization: Bearer <token>"
// header value
func ExtractBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
