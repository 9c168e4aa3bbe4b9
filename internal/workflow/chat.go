package workflow

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"joblink/internal/database"
)

// ChatAreaView 是沟通区列表的读投影。
type ChatAreaView struct {
	ID               uint   `json:"id"`
	JobPostID        uint   `json:"job_post_id"`
	JobPostTitle     string `json:"job_post_title"`
	CompanyName      string `json:"company_name"`
	ParticipantCount int64  `json:"participant_count"`
	MessageCount     int64  `json:"message_count"`
}

// ChatMessageView 是消息历史的读投影。
type ChatMessageView struct {
	ID         uint   `json:"id"`
	SenderID   uint   `json:"sender_id"`
	SenderName string `json:"sender_name"`
	SenderRole string `json:"sender_role"`
	Content    string `json:"content"`
	SentAt     string `json:"sent_at"`
}

// ListChatAreas 列出用户可见的沟通区：企业看到自己名下的全部，
// 求职者只看到自己是成员的那些。
func (s *Service) ListChatAreas(ctx context.Context, userID uint, role database.UserRole) ([]ChatAreaView, error) {
	var areas []database.ChatArea
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if role == database.RoleCompany {
		query = query.Where("company_id = ?", userID)
	} else {
		query = query.Where(
			"id IN (?)",
			s.db.Model(&database.ChatParticipant{}).Select("chat_area_id").Where("user_id = ?", userID),
		)
	}
	if err := query.Find(&areas).Error; err != nil {
		return nil, internal("list chat areas", err)
	}

	views := make([]ChatAreaView, 0, len(areas))
	for _, area := range areas {
		view := ChatAreaView{ID: area.ID, JobPostID: area.JobPostID}

		var jobPost database.JobPost
		if err := s.db.WithContext(ctx).Select("title").First(&jobPost, area.JobPostID).Error; err == nil {
			view.JobPostTitle = jobPost.Title
		}
		var company database.User
		if err := s.db.WithContext(ctx).Select("company_name").First(&company, area.CompanyID).Error; err == nil {
			view.CompanyName = company.CompanyName
		}
		s.db.WithContext(ctx).Model(&database.ChatParticipant{}).
			Where("chat_area_id = ?", area.ID).Count(&view.ParticipantCount)
		s.db.WithContext(ctx).Model(&database.ChatMessage{}).
			Where("chat_area_id = ?", area.ID).Count(&view.MessageCount)

		views = append(views, view)
	}
	return views, nil
}

// ChatHistory 返回沟通区的消息历史，按时间正序；仅成员可读。
func (s *Service) ChatHistory(ctx context.Context, userID, chatAreaID uint) ([]ChatMessageView, error) {
	if err := s.requireParticipant(ctx, userID, chatAreaID); err != nil {
		return nil, err
	}

	var messages []database.ChatMessage
	if err := s.db.WithContext(ctx).
		Where("chat_area_id = ?", chatAreaID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, internal("load chat messages", err)
	}

	senders := map[uint]database.User{}
	views := make([]ChatMessageView, 0, len(messages))
	for _, msg := range messages {
		sender, ok := senders[msg.UserID]
		if !ok {
			s.db.WithContext(ctx).First(&sender, msg.UserID)
			senders[msg.UserID] = sender
		}
		views = append(views, ChatMessageView{
			ID:         msg.ID,
			SenderID:   msg.UserID,
			SenderName: sender.FullName(),
			SenderRole: string(sender.Role),
			Content:    msg.Content,
			SentAt:     msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views, nil
}

// SendChatMessage 在沟通区内发送消息；仅成员可发。
// 其余成员通过通知旁路收到实时推送（不落通知记录）。
func (s *Service) SendChatMessage(ctx context.Context, userID, chatAreaID uint, content string) (*database.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("message content is required")
	}

	if err := s.requireParticipant(ctx, userID, chatAreaID); err != nil {
		return nil, err
	}

	message := database.ChatMessage{
		ChatAreaID: chatAreaID,
		UserID:     userID,
		Content:    content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, internal("create chat message", err)
	}

	var sender database.User
	s.db.WithContext(ctx).First(&sender, userID)

	var participants []database.ChatParticipant
	if err := s.db.WithContext(ctx).
		Where("chat_area_id = ? AND user_id <> ?", chatAreaID, userID).
		Find(&participants).Error; err == nil {
		for _, p := range participants {
			s.notifier.Publish(ctx, p.UserID, Event{
				Kind:      "CHAT_MESSAGE",
				Title:     sender.FullName(),
				Message:   content,
				RelatedID: chatAreaID,
			})
		}
	}

	return &message, nil
}

func (s *Service) requireParticipant(ctx context.Context, userID, chatAreaID uint) error {
	var participant database.ChatParticipant
	err := s.db.WithContext(ctx).
		Where("chat_area_id = ? AND user_id = ?", chatAreaID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return forbiddenf("access denied to chat area")
	}
	if err != nil {
		return internal("check chat participant", err)
	}
	return nil
}
