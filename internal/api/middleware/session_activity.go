package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const sessionActiveKeyPrefix = "stingy:session:active:"

// SessionActiveKey 返回会话活动标记的 Redis 键，清理循环用它判断会话是否真正空闲。
func SessionActiveKey(sessionID string) string {
	return sessionActiveKeyPrefix + sessionID
}

// SessionActivityMiddleware marks sessions as active so the sweeper can evict idle ones.
func SessionActivityMiddleware(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetSessionID(c)
		if id == "" || rdb == nil {
			c.Next()
			return
		}

		if ttl <= 0 {
			ttl = 30 * time.Minute
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		_ = rdb.Set(ctx, SessionActiveKey(id), "1", ttl).Err()

		c.Next()
	}
}
