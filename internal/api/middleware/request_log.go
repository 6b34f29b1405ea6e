package middleware

import (
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
)

// RequestLogger 记录每个 HTTP 请求的元数据。
//
// 会话中间件在它之后运行，所以 c.Next() 返回时能拿到会话 ID；
// 没挂会话中间件的路由（/healthz、/metrics）该字段为空。
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if logger == nil {
			return
		}
		logger.Info("request handled",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("session", GetSessionID(c)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
		)
	}
}
