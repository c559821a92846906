package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the verified actor id.
const ContextUserID = "user_id"

// RequireIdentity gates the API routes on the identity attached by the
// upstream auth layer. JWT verification and role checks happen there; this
// service trusts the forwarded identity for created_by attribution only.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "missing verified identity",
			})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}
