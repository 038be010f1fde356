package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/minds-hub/backend/internal/models"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

// SetIdentity stores id in c.
func SetIdentity(c *gin.Context, id *Identity) {
	c.Set(ContextUserID, id.UserID)
	c.Set(ContextUserRole, id.Role)
	c.Set(ContextUserEmail, id.Email)
}

// CallerID returns the authenticated user ID. It panics outside JWT-protected routes.
func CallerID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextUserID).(uuid.UUID)
}

// CallerRole returns the authenticated role, or "" when unauthenticated.
func CallerRole(c *gin.Context) models.Role {
	v, _ := c.Get(ContextUserRole)
	role, _ := v.(models.Role)
	return role
}

// IsStaff reports whether the caller is staff.
func IsStaff(c *gin.Context) bool {
	return CallerRole(c) == models.RoleStaff
}
