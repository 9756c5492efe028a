package middleware

import (
	"github.com/gin-gonic/gin"
)

// Activity marks every handled request as operator interaction, deferring
// the idle logout.
func Activity(s Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.Touch()
		c.Next()
	}
}
