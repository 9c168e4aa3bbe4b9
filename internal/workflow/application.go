package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"joblink/internal/database"
)

// ApplyInput 描述一次投递请求。ResumeID 与 CustomResume 二选一，
// 提供 CustomResume 时会为该职位生成一份一次性简历。
type ApplyInput struct {
	JobSeekerID  uint
	JobPostID    uint
	ResumeID     *uint
	CoverLetter  string
	CustomResume *CustomResume
}

// CustomResume 是随投递内联提交的简历内容。
type CustomResume struct {
	Summary    string
	Experience string
	Education  string
	Skills     datatypes.JSON
}

// Apply 创建投递记录：职位必须在线且未过截止；同一职位不可重复投递。
// 若职位启用聊天，投递者同时加入沟通区；成功后通知企业。
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*database.JobApplication, error) {
	var jobPost database.JobPost
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ? AND application_deadline > ?", input.JobPostID, true, time.Now()).
		First(&jobPost).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("job post not found or expired")
	}
	if err != nil {
		return nil, internal("load job post", err)
	}

	var existing database.JobApplication
	err = s.db.WithContext(ctx).
		Where("job_post_id = ? AND job_seeker_id = ?", input.JobPostID, input.JobSeekerID).
		First(&existing).Error
	if err == nil {
		return nil, conflictf("you have already applied to this job")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal("check existing application", err)
	}

	resumeID := input.ResumeID
	application := database.JobApplication{
		JobPostID:   input.JobPostID,
		JobSeekerID: input.JobSeekerID,
		CoverLetter: input.CoverLetter,
		Status:      database.ApplicationNotViewed,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.CustomResume != nil {
			custom := database.Resume{
				UserID:     input.JobSeekerID,
				Title:      fmt.Sprintf("Custom Resume for %s", jobPost.Title),
				Summary:    input.CustomResume.Summary,
				Experience: input.CustomResume.Experience,
				Education:  input.CustomResume.Education,
				Skills:     input.CustomResume.Skills,
				Custom:     true,
			}
			if err := tx.Create(&custom).Error; err != nil {
				return internal("create custom resume", err)
			}
			resumeID = &custom.ID
		}

		if resumeID != nil {
			var resume database.Resume
			err := tx.Where("id = ? AND user_id = ?", *resumeID, input.JobSeekerID).First(&resume).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationf("resume not found")
			}
			if err != nil {
				return internal("load resume", err)
			}
		}

		application.ResumeID = resumeID
		if err := tx.Create(&application).Error; err != nil {
			// 唯一索引兜底并发的重复投递。
			return conflictf("you have already applied to this job")
		}

		if jobPost.HasChatArea {
			if err := enrollInChat(tx, jobPost.ID, input.JobSeekerID); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notifier.Notify(ctx, jobPost.CompanyID,
		database.NotificationApplication,
		"New Job Application",
		fmt.Sprintf("New application received for %s", jobPost.Title),
		application.ID,
	)

	return &application, nil
}

// allowed status values for company review; NOT_VIEWED is the initial state only.
var reviewStatuses = map[database.ApplicationStatus]struct{}{
	database.ApplicationViewed:             {},
	database.ApplicationShortlisted:        {},
	database.ApplicationInterviewScheduled: {},
	database.ApplicationRejected:           {},
	database.ApplicationAccepted:           {},
}

// UpdateApplicantStatus 由企业更新投递状态。状态取值之间没有强制顺序。
// 设为 ACCEPTED 且职位启用聊天时，幂等地把求职者加入沟通区；
// 始终通知求职者新的状态。
func (s *Service) UpdateApplicantStatus(ctx context.Context, companyID, applicationID uint, status database.ApplicationStatus) (*database.JobApplication, error) {
	if _, ok := reviewStatuses[status]; !ok {
		return nil, validationf("invalid status")
	}

	var application database.JobApplication
	err := s.db.WithContext(ctx).First(&application, applicationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("application not found")
	}
	if err != nil {
		return nil, internal("load application", err)
	}

	var jobPost database.JobPost
	err = s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", application.JobPostID, companyID).
		First(&jobPost).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 不属于该企业的投递与不存在的投递不作区分。
		return nil, notFoundf("application not found")
	}
	if err != nil {
		return nil, internal("load job post", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&application).Update("status", status).Error; err != nil {
			return internal("update application status", err)
		}
		if status == database.ApplicationAccepted && jobPost.HasChatArea {
			return enrollInChat(tx, jobPost.ID, application.JobSeekerID)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	application.Status = status

	s.notifier.Notify(ctx, application.JobSeekerID,
		database.NotificationApplicationStatus,
		"Application Status Updated",
		fmt.Sprintf("Your application for %s has been %s", jobPost.Title, strings.ToLower(string(status))),
		application.ID,
	)

	return &application, nil
}

// enrollInChat 幂等地把用户加入职位的沟通区；没有沟通区则跳过。
func enrollInChat(tx *gorm.DB, jobPostID, userID uint) error {
	var chatArea database.ChatArea
	err := tx.Where("job_post_id = ?", jobPostID).First(&chatArea).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return internal("load chat area", err)
	}

	participant := database.ChatParticipant{ChatAreaID: chatArea.ID, UserID: userID}
	err = tx.Where("chat_area_id = ? AND user_id = ?", chatArea.ID, userID).
		FirstOrCreate(&participant).Error
	if err != nil {
		return internal("enroll chat participant", err)
	}
	return nil
}
