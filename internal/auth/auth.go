// Package auth verifies session tokens and attaches user identity to requests.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lucidnotes/lucid-search/internal/config"
	"github.com/lucidnotes/lucid-search/internal/pkg/errors"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
)

type contextKey string

const userIDKey contextKey = "auth.user_id"

// UserID returns the authenticated user id from the request context, or ""
// when the request was not authenticated.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a context carrying the given user id. Exposed for tests
// and internal callers that bypass the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Verifier validates session JWTs and extracts the subject.
type Verifier struct {
	secret     []byte
	cookieName string
	log        *logger.Logger
}

// NewVerifier creates a verifier from config.
func NewVerifier(cfg config.AuthConfig, log *logger.Logger) *Verifier {
	return &Verifier{
		secret:     []byte(cfg.JWTSecret),
		cookieName: cfg.CookieName,
		log:        log,
	}
}

// Middleware authenticates the request from the session cookie or the
// Authorization header. Identity comes only from the verified token, never
// from the request body. Unauthenticated requests get a 401.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := v.extractToken(r)
		if token == "" {
			errors.WriteError(w, errors.UnauthorizedError())
			return
		}

		userID, err := v.verify(token)
		if err != nil {
			v.log.Debug("rejected session token", "error", err)
			errors.WriteError(w, errors.UnauthorizedError())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// extractToken prefers the session cookie and falls back to a bearer token.
func (v *Verifier) extractToken(r *http.Request) string {
	if v.cookieName != "" {
		if c, err := r.Cookie(v.cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}

	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}

	return ""
}

// verify parses and validates the token and returns its subject.
func (v *Verifier) verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return sub, nil
}
