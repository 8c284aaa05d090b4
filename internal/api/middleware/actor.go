package middleware

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// ActorHeader names the caller for the audit log. Requests are not
// authenticated, so the value is informational only.
const ActorHeader = "X-Actor"

// ActorKey is the gin context key holding the caller's name.
const ActorKey = "actor"

// maxActorLen bounds what a client can write into audit rows.
const maxActorLen = 128

// Actor copies the X-Actor header into the request context. An absent or
// blank header leaves the key unset.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := truncate(strings.TrimSpace(c.GetHeader(ActorHeader)), maxActorLen)
		if actor != "" {
			c.Set(ActorKey, actor)
		}
		c.Next()
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// GetActor returns the caller set by Actor, or "".
func GetActor(c *gin.Context) string {
	return c.GetString(ActorKey)
}

// RequireRBAC rejects requests with 501 when the casbin mirror is disabled.
func RequireRBAC(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "RBAC is disabled"})
			c.Abort()
			return
		}
		c.Next()
	}
}
