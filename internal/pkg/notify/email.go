package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/arminrahbar/price-tracker-webapp/internal/config"
	"github.com/arminrahbar/price-tracker-webapp/internal/model"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendContact 把联系表单消息转成邮件发给站点收件箱。
func (n *EmailNotifier) SendContact(ctx context.Context, msg *model.ContactMessage) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip contact delivery")
		return nil
	}
	if strings.TrimSpace(n.cfg.ContactInbox) == "" {
		n.logger.Warn("contact inbox empty, skip contact delivery")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", n.cfg.ContactInbox)
	if strings.TrimSpace(msg.Email) != "" {
		m.SetHeader("Reply-To", msg.Email)
	}
	m.SetHeader("Subject", fmt.Sprintf("[Stingy] Contact from %s", msg.Name))
	m.SetBody("text/html", n.buildHTMLBody(msg))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("contact email sent",
		slog.String("from", msg.Email),
		slog.String("name", msg.Name))
	return nil
}

func (n *EmailNotifier) buildHTMLBody(msg *model.ContactMessage) string {
	template := `
<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .meta { font-size: 14px; color: #6b7280; margin-bottom: 12px; }
  .message { font-size: 15px; white-space: pre-wrap; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">[Stingy] 用户留言</div>
    <div class="content">
      <div class="meta">%s &lt;%s&gt;</div>
      <div class="message">%s</div>
    </div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template,
		html.EscapeString(msg.Name),
		html.EscapeString(msg.Email),
		html.EscapeString(msg.Message))
}
