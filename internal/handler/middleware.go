package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/infra/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const subjectKey contextKey = "subject"

// TokenGuard issues and validates HS256 bearer tokens for the mutating routes.
type TokenGuard struct {
	secret []byte
}

// NewTokenGuard returns nil for an empty secret, which leaves routes open.
func NewTokenGuard(secret string) *TokenGuard {
	if secret == "" {
		return nil
	}
	return &TokenGuard{secret: []byte(secret)}
}

// Issue signs a token for subject valid for ttl.
func (g *TokenGuard) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

// Validate parses a token string and returns its claims.
func (g *TokenGuard) Validate(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "token expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// Middleware validates Bearer tokens and injects the subject into context.
func (g *TokenGuard) Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				handleServiceError(w, &domain.ErrUnauthorized{Message: "missing bearer token"}, logger)
				return
			}

			claims, err := g.Validate(token)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}

			observability.SetRequestSubject(r.Context(), claims.Subject)
			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext extracts the authenticated subject from context.
func SubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}
