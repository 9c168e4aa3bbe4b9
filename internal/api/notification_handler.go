package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"joblink/internal/api/middleware"
	"joblink/internal/database"
)

// NotificationHandler 暴露站内通知的查询与已读标记接口。
type NotificationHandler struct {
	db          *gorm.DB
	logger      *slog.Logger
	development bool
}

// NewNotificationHandler 构造通知处理器。
func NewNotificationHandler(db *gorm.DB, logger *slog.Logger, development bool) *NotificationHandler {
	return &NotificationHandler{db: db, logger: logger, development: development}
}

// List 按时间倒序分页返回通知，附带未读计数。
func (h *NotificationHandler) List(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()
	page, limit := pageParams(c)

	query := h.db.WithContext(ctx).Model(&database.Notification{}).
		Where("user_id = ?", actor.UserID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		Internal(c, "Failed to fetch notifications", err, h.development)
		return
	}

	var notifications []database.Notification
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&notifications).Error; err != nil {
		Internal(c, "Failed to fetch notifications", err, h.development)
		return
	}

	var unreadCount int64
	h.db.WithContext(ctx).Model(&database.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.UserID, false).
		Count(&unreadCount)

	items := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, gin.H{
			"id":        n.ID,
			"kind":      n.Kind,
			"title":     n.Title,
			"message":   n.Message,
			"relatedId": n.RelatedID,
			"isRead":    n.IsRead,
			"createdAt": n.CreatedAt,
		})
	}

	OK(c, http.StatusOK, "", gin.H{
		"notifications": items,
		"unreadCount":   unreadCount,
		"pagination":    paginationBody(page, limit, total),
	})
}

// MarkRead 把一条自己的通知标记为已读。
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid notification ID")
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Model(&database.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, actor.UserID).
		Update("is_read", true)
	if result.Error != nil {
		Internal(c, "Failed to mark notification as read", result.Error, h.development)
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "Notification not found")
		return
	}

	OK(c, http.StatusOK, "Notification marked as read", nil)
}

// MarkAllRead 把全部未读通知标记为已读。
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	if err := h.db.WithContext(c.Request.Context()).
		Model(&database.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.UserID, false).
		Update("is_read", true).Error; err != nil {
		Internal(c, "Failed to mark notifications as read", err, h.development)
		return
	}

	OK(c, http.StatusOK, "All notifications marked as read", nil)
}
