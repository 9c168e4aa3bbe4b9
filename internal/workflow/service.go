package workflow

import (
	"log/slog"

	"gorm.io/gorm"
)

// Service 实现职位、投递、订阅、邀约与聊天成员之间的状态流转。
// 每个操作自带身份与归属校验，状态变更在单个事务内完成，
// 通知作为尽力而为的旁路在事务外发出。
type Service struct {
	db       *gorm.DB
	notifier *Notifier
	logger   *slog.Logger
}

// NewService 构造工作流服务。
func NewService(db *gorm.DB, notifier *Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, notifier: notifier, logger: logger}
}

// Notifier 暴露通知器，供处理器发送纯通知类操作（如职位分享）。
func (s *Service) Notifier() *Notifier { return s.notifier }
