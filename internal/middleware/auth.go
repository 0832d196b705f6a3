package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	UserKey  = "user"
	EmailKey = "email"
)

// Authenticator resolves a bearer token to a signed-in user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth rejects requests without a valid session. Users who logged out
// are rejected even if their token has not expired.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			apperrors.Respond(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Missing bearer token"))
			return
		}

		user, err := a.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.Set(UserKey, user)
		c.Set(EmailKey, user.Email)
		c.Next()
	}
}

// CurrentEmail returns the authenticated user's email.
func CurrentEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// AdminKey guards catalog maintenance routes. An empty key disables them.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			apperrors.Respond(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
