package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Session is the authority the guards consult. The auth orchestrator
// satisfies it.
type Session interface {
	IsAuthenticated() bool
	HasAll(perms ...string) bool
	Touch()
}

// RequireAuth rejects requests while no session is established. The
// redirect hint tells the calling UI where to send the operator.
func RequireAuth(s Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "unauthenticated",
				"redirect": "/login",
			})
			return
		}

		c.Next()
	}
}

// RequirePermissions rejects authenticated requests lacking any of the
// named permissions. Unauthenticated requests are rejected as such, not
// as denials.
func RequirePermissions(s Session, perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "unauthenticated",
				"redirect": "/login",
			})
			return
		}

		if !s.HasAll(perms...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access_denied",
			})
			return
		}

		c.Next()
	}
}
