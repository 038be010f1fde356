package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minds-hub/backend/pkg/response"
)

// Authenticator resolves a bearer token to the caller it was issued for.
type Authenticator interface {
	Authenticate(token string) (*Identity, error)
}

// JWT returns a middleware that validates the bearer token and stores the caller in context.
func JWT(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		id, err := authn.Authenticate(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}
