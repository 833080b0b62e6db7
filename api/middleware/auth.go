package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/models"
)

// OwnerKey is the gin context key holding the authenticated owner identity.
// Every core operation is scoped to it.
const OwnerKey = "owner_id"

// Auth returns API-key authentication middleware mapping each key to an
// owner identity.
//
// Supports two header styles:
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// If keys is empty, the middleware grants open access under a single
// "default" owner. Dev mode, not for production.
func Auth(keys map[string]string) gin.HandlerFunc {
	if len(keys) == 0 {
		return func(c *gin.Context) {
			c.Set(OwnerKey, "default")
			c.Next()
		}
	}

	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			abortUnauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}

		owner, valid := keys[key]
		if !valid {
			abortUnauthorized(c, "invalid API key")
			return
		}

		c.Set(OwnerKey, owner)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}

// extractAPIKey tries X-API-Key first, then Authorization: Bearer.
func extractAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
