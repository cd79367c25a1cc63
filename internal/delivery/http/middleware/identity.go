package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Harsh-BH/Lumina/internal/domain"
)

const callerKey = "caller"

// Identity attaches the caller every request acts on behalf of. Authentication is out of
// scope, so every request runs as ownerID.
func Identity(ownerID string) gin.HandlerFunc {
	caller := domain.Caller{OwnerID: ownerID}
	return func(c *gin.Context) {
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller set by Identity, or the zero Caller.
func CallerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Caller{}
}
