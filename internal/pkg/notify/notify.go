package notify

import (
	"context"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
)

// Notifier 定义通知接口。
type Notifier interface {
	// SendContact 把一条联系表单消息投递给站点维护者。
	//
	// 参数:
	//   ctx: 上下文
	//   msg: 表单内容（姓名、邮箱、正文）
	SendContact(ctx context.Context, msg *model.ContactMessage) error
}
