// Package middleware guards routes that require a provider-issued
// access token. Tokens are verified against the user pool's published
// signing keys; no call to the provider is made per request.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	errMissingAuthHeader = errors.New("authorization header missing")
	errInvalidAuthHeader = errors.New("authorization header is malformed")
	errMissingSubject    = errors.New("token missing subject claim")
	errWrongTokenUse     = errors.New("token is not an access token")
)

// Claims is the verified subject extracted from a bearer token.
type Claims struct {
	Subject string
}

// Verifier validates a bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// JWKSVerifier validates provider-issued JWTs against the pool's JWKS.
type JWKSVerifier struct {
	jwks   *keyfunc.JWKS
	issuer string
}

// NewJWKSVerifier fetches the signing keys once and keeps them
// refreshed in the background.
func NewJWKSVerifier(jwksURL, issuer string) (*JWKSVerifier, error) {
	options := keyfunc.Options{RefreshErrorHandler: func(err error) {
		// Refresh failures keep the previous key set; verification
		// continues until keys rotate.
	}}

	jwks, err := keyfunc.Get(jwksURL, options)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	return &JWKSVerifier{jwks: jwks, issuer: issuer}, nil
}

// Verify parses and validates the token signature, issuer and expiry,
// and requires an access-token use claim.
func (v *JWKSVerifier) Verify(_ context.Context, token string) (Claims, error) {
	options := []jwt.ParserOption{jwt.WithLeeway(5 * time.Second)}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	t, err := jwt.Parse(token, v.jwks.Keyfunc, options...)
	if err != nil {
		return Claims{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("unexpected claims type")
	}

	if use, _ := claims["token_use"].(string); use != "access" {
		return Claims{}, errWrongTokenUse
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, errMissingSubject
	}

	return Claims{Subject: sub}, nil
}

type ctxKey string

const claimsCtxKey ctxKey = "identity:claims"

// RequireAccessToken rejects requests without a valid bearer token and
// stores the verified claims in the request context.
func RequireAccessToken(verifier Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := tokenFromRequest(r)
			if err != nil {
				unauthorized(w, err)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				log.Debug("bearer token rejected", zap.Error(err))
				unauthorized(w, errors.New("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts the verified claims set by
// RequireAccessToken.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(Claims)
	return claims, ok
}

func tokenFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errInvalidAuthHeader
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errInvalidAuthHeader
	}
	return token, nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"code":"unauthorized","message":%q}`, err.Error())
}
