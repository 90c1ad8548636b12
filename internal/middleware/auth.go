package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/response"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
)

// ContextUserKey is the gin context key storing access-token claims.
const ContextUserKey = "currentUser"

// TokenVerifier validates a raw bearer token and returns its claims.
type TokenVerifier interface {
	VerifyAccessToken(raw string) (*models.AccessClaims, error)
}

// Auth protects routes by requiring a valid bearer access token. On
// success the claims are stored in the request context; on any failure
// the request is rejected with 401 before reaching the handler.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := verifier.VerifyAccessToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
