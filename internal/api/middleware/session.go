package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"joblink/internal/database"
	"joblink/internal/session"
)

const actorKey = "actor"

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "Not authenticated",
	})
}

// SessionAuth 从 Cookie 中取出会话令牌并解析为请求级认证上下文。
// 没有会话或会话失效一律返回 401。
func SessionAuth(store *session.Store, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			abortUnauthenticated(c)
			return
		}

		sess, err := store.Get(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				LoggerFromContext(c).Error("session lookup failed", "error", err)
			}
			abortUnauthenticated(c)
			return
		}

		c.Set(actorKey, *sess)
		c.Next()
	}
}

// RequireRole 在 SessionAuth 之后使用，限制路由只对某一角色开放。
func RequireRole(role database.UserRole, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		if actor.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": message,
			})
			return
		}
		c.Next()
	}
}

// ActorFromContext 返回当前请求的认证上下文。
func ActorFromContext(c *gin.Context) (session.Session, bool) {
	value, ok := c.Get(actorKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := value.(session.Session)
	return sess, ok
}
