package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"joblink/internal/database"
)

const invitationValidity = 30 * 24 * time.Hour

// 邀约响应动作。
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

func validProfileType(profileType string) bool {
	return profileType == database.ProfileTypeEmployable || profileType == database.ProfileTypeVirtualIntern
}

// Subscribe 由求职者直接订阅企业：必须先建好求职者资料，
// 同一 (企业, 求职者, 类型) 只能订阅一次。成功后通知企业。
func (s *Service) Subscribe(ctx context.Context, jobSeekerID, companyID uint, profileType string) (*database.CompanySubscription, error) {
	if !validProfileType(profileType) {
		return nil, validationf("valid profile type is required (EMPLOYABLE or VIRTUAL_INTERN)")
	}

	var company database.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND role = ?", companyID, database.RoleCompany).
		First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("company not found")
	}
	if err != nil {
		return nil, internal("load company", err)
	}

	var profile database.JobSeekerProfile
	err = s.db.WithContext(ctx).Where("user_id = ?", jobSeekerID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationf("please create your job seeker profile first")
	}
	if err != nil {
		return nil, internal("load job seeker profile", err)
	}

	var existing database.CompanySubscription
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND job_seeker_id = ? AND profile_type = ?", companyID, jobSeekerID, profileType).
		First(&existing).Error
	if err == nil {
		return nil, conflictf("you are already subscribed to this company as %s", profileType)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal("check existing subscription", err)
	}

	subscription := database.CompanySubscription{
		CompanyID:   companyID,
		JobSeekerID: jobSeekerID,
		ProfileType: profileType,
	}
	if err := s.db.WithContext(ctx).Create(&subscription).Error; err != nil {
		// 唯一索引兜底并发的重复订阅。
		return nil, conflictf("you are already subscribed to this company as %s", profileType)
	}

	s.notifier.Notify(ctx, companyID,
		database.NotificationSubscription,
		"New Subscription",
		fmt.Sprintf("New %s subscription received", strings.ToLower(profileType)),
		subscription.ID,
	)

	return &subscription, nil
}

// Invite 由企业向求职者发出订阅邀约，30 天内有效。
// 同一 (企业, 求职者, 类型) 只允许一条待处理邀约。成功后通知求职者。
func (s *Service) Invite(ctx context.Context, companyID, jobSeekerID uint, profileType, message string) (*database.Invitation, error) {
	if !validProfileType(profileType) {
		return nil, validationf("valid profile type is required (EMPLOYABLE or VIRTUAL_INTERN)")
	}

	var jobSeeker database.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND role = ?", jobSeekerID, database.RoleJobSeeker).
		First(&jobSeeker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("jobseeker not found")
	}
	if err != nil {
		return nil, internal("load jobseeker", err)
	}

	var existing database.Invitation
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND job_seeker_id = ? AND profile_type = ? AND status = ?",
			companyID, jobSeekerID, profileType, database.InvitationPending).
		First(&existing).Error
	if err == nil {
		return nil, conflictf("invitation already sent and pending")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal("check existing invitation", err)
	}

	invitation := database.Invitation{
		CompanyID:   companyID,
		JobSeekerID: jobSeekerID,
		ProfileType: profileType,
		Message:     message,
		Status:      database.InvitationPending,
		ExpiresAt:   time.Now().Add(invitationValidity),
	}
	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		// 部分唯一索引兜底并发的重复邀约。
		return nil, conflictf("invitation already sent and pending")
	}

	var company database.User
	companyName := "A company"
	if err := s.db.WithContext(ctx).First(&company, companyID).Error; err == nil {
		companyName = company.CompanyName
	}

	s.notifier.Notify(ctx, jobSeekerID,
		database.NotificationInvitation,
		"New Company Invitation",
		fmt.Sprintf("%s invited you to subscribe as %s", companyName, profileType),
		invitation.ID,
	)

	return &invitation, nil
}

// RespondToInvitation 处理求职者对邀约的回应。只有属于该求职者且仍为
// PENDING 的邀约可以回应；过期邀约按不存在处理（惰性过期，不回写状态）。
// 接受时创建订阅——这里沿用参考实现，不重查订阅是否已存在，
// 求职者若此前已直接订阅会得到一条重复订阅记录。
func (s *Service) RespondToInvitation(ctx context.Context, jobSeekerID, invitationID uint, action string) (*database.Invitation, error) {
	if action != ActionAccept && action != ActionDecline {
		return nil, validationf("action must be 'accept' or 'decline'")
	}

	var invitation database.Invitation
	err := s.db.WithContext(ctx).
		Where("id = ? AND job_seeker_id = ? AND status = ?", invitationID, jobSeekerID, database.InvitationPending).
		First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("invitation not found or already responded")
	}
	if err != nil {
		return nil, internal("load invitation", err)
	}

	if time.Now().After(invitation.ExpiresAt) {
		return nil, notFoundf("invitation has expired")
	}

	if action == ActionDecline {
		if err := s.db.WithContext(ctx).Model(&invitation).Update("status", database.InvitationDeclined).Error; err != nil {
			return nil, internal("decline invitation", err)
		}
		invitation.Status = database.InvitationDeclined
		return &invitation, nil
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription := database.CompanySubscription{
			CompanyID:   invitation.CompanyID,
			JobSeekerID: jobSeekerID,
			ProfileType: invitation.ProfileType,
		}
		if err := tx.Create(&subscription).Error; err != nil {
			return internal("create subscription from invitation", err)
		}
		if err := tx.Model(&invitation).Update("status", database.InvitationAccepted).Error; err != nil {
			return internal("accept invitation", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	invitation.Status = database.InvitationAccepted

	return &invitation, nil
}
