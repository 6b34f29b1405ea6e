package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCookieName 会话 Cookie 的名称。
const SessionCookieName = "stingy_session"

// sessionKey 会话 ID 在 gin.Context 中的键。
const sessionKey = "sessionID"

// SessionMiddleware 保证每个请求都带有会话 ID。
//
// Cookie 缺失或为空时生成一个新 ID 并回写 Cookie，
// 之后处理器可以通过 GetSessionID 取到它。
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookieName)
		if err != nil || id == "" {
			id, err = newSessionID()
			if err != nil {
				// 随机源不可用时绝不能退化成所有客户端共享一个会话
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, id, 0, "/", "", false, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

// GetSessionID 取出当前请求的会话 ID。
func GetSessionID(c *gin.Context) string {
	if v, ok := c.Get(sessionKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
