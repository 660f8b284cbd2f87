// Package auth resolves the signed-in user of an API request.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/utils"
	"github.com/gin-gonic/gin"
)

var (
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Modes accepted in the auth config.
const (
	ModeJWT  = "jwt"
	ModeOIDC = "oidc"
)

// Verifier checks a bearer token and returns the user id it names.
type Verifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

type userKey struct{}

const ginUserKey = "bowen.userID"

// WithUser stores the user id in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// FromContext returns the user id stored by WithUser.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// UserID returns the authenticated user of a gin request, or "".
func UserID(c *gin.Context) string {
	return c.GetString(ginUserKey)
}

// Middleware rejects requests without a valid token with a plain 401
// "Unauthorized". The token is read from the Authorization header, or from
// the token query parameter for WebSocket upgrades.
func Middleware(v Verifier) gin.HandlerFunc {
	logger := utils.GetLogger().With("component", "auth")
	return func(c *gin.Context) {
		raw := bearer(c.Request)
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			unauthorized(c)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		userID, err := v.Verify(ctx, raw)
		cancel()
		if err != nil {
			logger.Warn("Token is invalid", "path", c.FullPath(), "error", err)
			unauthorized(c)
			return
		}

		c.Set(ginUserKey, userID)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), userID))
		c.Next()
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func unauthorized(c *gin.Context) {
	c.String(http.StatusUnauthorized, "Unauthorized")
	c.Abort()
}
