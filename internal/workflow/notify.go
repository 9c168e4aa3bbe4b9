package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"joblink/internal/database"
)

// Notifier 负责工作流的通知旁路：落库一条未读通知，
// 并通过 Redis Pub/Sub 推送给在线客户端。
// 旁路失败只记录日志，绝不反馈给触发它的状态变更。
type Notifier struct {
	db     *gorm.DB
	redis  redis.UniversalClient
	logger *slog.Logger
}

// NewNotifier 构造通知器。redisClient 可为 nil，此时只落库不推送。
func NewNotifier(db *gorm.DB, redisClient redis.UniversalClient, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{db: db, redis: redisClient, logger: logger}
}

// Event 是推送到 Redis 频道的消息体。
type Event struct {
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	RelatedID uint   `json:"related_id,omitempty"`
}

// Notify 为用户落库一条未读通知并尝试推送。
func (n *Notifier) Notify(ctx context.Context, userID uint, kind, title, message string, relatedID uint) {
	notification := database.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		RelatedID: relatedID,
	}
	if err := n.db.WithContext(ctx).Create(&notification).Error; err != nil {
		n.logger.Error("persist notification failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("kind", kind),
			slog.Any("error", err),
		)
		return
	}

	n.Publish(ctx, userID, Event{
		Kind:      kind,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
	})
}

// Publish 只向用户的 Redis 频道推送事件，不产生通知记录。
// 聊天消息等高频事件走这条路径。
func (n *Notifier) Publish(ctx context.Context, userID uint, event Event) {
	if n.redis == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal notify event failed", slog.Any("error", err))
		return
	}

	channel := ChannelForUser(userID)
	if err := n.redis.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Warn("publish notify event failed",
			slog.String("channel", channel),
			slog.Any("error", err),
		)
	}
}

// ChannelForUser 返回用户的通知频道名。
func ChannelForUser(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
