package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the authenticated user id, injected by the edge
	// proxy after token validation.
	UserIDHeader = "X-User-ID"

	// UserIDKey is the key used to store the user id in the context
	UserIDKey = "user_id"
)

// Identity middleware parses the authenticated user id header. Routes that
// operate on the caller's wallet read it via GetUserID.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw != "" {
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil && userID > 0 {
				c.Set(UserIDKey, userID)
			}
		}

		c.Next()
	}
}

// GetUserID retrieves the authenticated user id from the gin context.
// The second return is false when the header was missing or malformed.
func GetUserID(c *gin.Context) (int64, bool) {
	if v, exists := c.Get(UserIDKey); exists {
		if userID, ok := v.(int64); ok {
			return userID, true
		}
	}
	return 0, false
}
