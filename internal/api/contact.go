package api

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// handleContact 接收联系表单并投递到站点收件箱。
//
// 三道闸门：限流（全站令牌桶）、去重（同一发件人同一正文的
// 时间窗口内只收一次）、邮箱格式校验。去重命中返回 200，
// 前端不需要把重复点击当错误展示。
func (s *Server) handleContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and message are required"})
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}

	ctx := c.Request.Context()

	allowed, err := s.limiter.Allow(ctx)
	if err != nil {
		s.logger.Warn("contact rate limit check failed", slog.String("error", err.Error()))
		// 限流器故障时放行：联系表单不值得为 Redis 抖动返回 5xx
		allowed = true
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions, try again later"})
		return
	}

	dup, err := s.deduper.IsDuplicate(ctx, req.Email, req.Message)
	if err != nil {
		s.logger.Warn("contact dedup check failed", slog.String("error", err.Error()))
	}
	if dup {
		metrics.ContactDuplicatePreventedTotal.Inc()
		c.JSON(http.StatusOK, gin.H{"status": "already received"})
		return
	}

	msg := &model.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Message: req.Message,
	}
	if err := s.notifier.SendContact(ctx, msg); err != nil {
		s.logger.Error("contact delivery failed",
			slog.String("from", msg.Email),
			slog.String("error", err.Error()))
		// 投递失败必须撤掉刚占下的去重标记，否则窗口期内的重试
		// 会被当成重复提交吞掉，消息就永远丢了
		if delErr := s.deduper.Delete(ctx, req.Email, req.Message); delErr != nil {
			s.logger.Warn("dedup rollback failed",
				slog.String("from", msg.Email),
				slog.String("error", delErr.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delivery failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
