package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"joblink/internal/database"
)

// JobPostInput 描述创建职位时的完整字段。
type JobPostInput struct {
	Title               string
	Description         string
	Industry            string
	JobType             string
	Location            string
	ExperienceLevel     string
	SalaryMin           *int
	SalaryMax           *int
	Requirements        datatypes.JSON
	SkillsRequired      datatypes.JSON
	Benefits            datatypes.JSON
	ApplicationDeadline time.Time
	HasChatArea         bool
	IsRemote            bool
}

// JobPostPatch 描述职位的部分更新，nil 字段保持原值。
type JobPostPatch struct {
	Title               *string
	Description         *string
	Industry            *string
	JobType             *string
	Location            *string
	ExperienceLevel     *string
	SalaryMin           *int
	SalaryMax           *int
	Requirements        datatypes.JSON
	SkillsRequired      datatypes.JSON
	Benefits            datatypes.JSON
	ApplicationDeadline *time.Time
	IsRemote            *bool
	IsActive            *bool
}

// CreateJobPost 校验必填字段与截止时间后创建职位；
// 启用聊天的职位同时建好沟通区并把企业加入其中。
func (s *Service) CreateJobPost(ctx context.Context, companyID uint, input JobPostInput) (*database.JobPost, error) {
	if strings.TrimSpace(input.Title) == "" ||
		strings.TrimSpace(input.Description) == "" ||
		strings.TrimSpace(input.Industry) == "" ||
		strings.TrimSpace(input.JobType) == "" ||
		input.ApplicationDeadline.IsZero() {
		return nil, validationf("title, description, industry, job type, and deadline are required")
	}
	if !input.ApplicationDeadline.After(time.Now()) {
		return nil, validationf("application deadline must be in the future")
	}

	jobPost := database.JobPost{
		CompanyID:           companyID,
		Title:               input.Title,
		Description:         input.Description,
		Industry:            input.Industry,
		JobType:             input.JobType,
		Location:            input.Location,
		ExperienceLevel:     input.ExperienceLevel,
		SalaryMin:           input.SalaryMin,
		SalaryMax:           input.SalaryMax,
		Requirements:        input.Requirements,
		SkillsRequired:      input.SkillsRequired,
		Benefits:            input.Benefits,
		ApplicationDeadline: input.ApplicationDeadline,
		HasChatArea:         input.HasChatArea,
		IsRemote:            input.IsRemote,
		IsActive:            true,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&jobPost).Error; err != nil {
			return internal("create job post", err)
		}
		if jobPost.HasChatArea {
			chatArea := database.ChatArea{JobPostID: jobPost.ID, CompanyID: companyID}
			if err := tx.Create(&chatArea).Error; err != nil {
				return internal("create chat area", err)
			}
			participant := database.ChatParticipant{ChatAreaID: chatArea.ID, UserID: companyID}
			if err := tx.Create(&participant).Error; err != nil {
				return internal("enroll company in chat area", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return &jobPost, nil
}

// UpdateJobPost 要求职位归属于该企业，按补丁合并字段。
func (s *Service) UpdateJobPost(ctx context.Context, companyID, jobPostID uint, patch JobPostPatch) (*database.JobPost, error) {
	jobPost, err := s.ownedJobPost(ctx, companyID, jobPostID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Industry != nil {
		updates["industry"] = *patch.Industry
	}
	if patch.JobType != nil {
		updates["job_type"] = *patch.JobType
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.ExperienceLevel != nil {
		updates["experience_level"] = *patch.ExperienceLevel
	}
	if patch.SalaryMin != nil {
		updates["salary_min"] = *patch.SalaryMin
	}
	if patch.SalaryMax != nil {
		updates["salary_max"] = *patch.SalaryMax
	}
	if patch.Requirements != nil {
		updates["requirements"] = patch.Requirements
	}
	if patch.SkillsRequired != nil {
		updates["skills_required"] = patch.SkillsRequired
	}
	if patch.Benefits != nil {
		updates["benefits"] = patch.Benefits
	}
	if patch.ApplicationDeadline != nil {
		updates["application_deadline"] = *patch.ApplicationDeadline
	}
	if patch.IsRemote != nil {
		updates["is_remote"] = *patch.IsRemote
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	if len(updates) == 0 {
		return jobPost, nil
	}

	if err := s.db.WithContext(ctx).Model(jobPost).Updates(updates).Error; err != nil {
		return nil, internal("update job post", err)
	}

	var updated database.JobPost
	if err := s.db.WithContext(ctx).First(&updated, jobPostID).Error; err != nil {
		return nil, internal("reload job post", err)
	}
	return &updated, nil
}

// DeleteJobPost 要求职位归属于该企业。没有任何投递时彻底删除，
// 否则降级为停用。返回值指示是否走了停用分支。
func (s *Service) DeleteJobPost(ctx context.Context, companyID, jobPostID uint) (deactivated bool, err error) {
	jobPost, err := s.ownedJobPost(ctx, companyID, jobPostID)
	if err != nil {
		return false, err
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&database.JobApplication{}).
		Where("job_post_id = ?", jobPostID).
		Count(&count).Error; err != nil {
		return false, internal("count applications", err)
	}

	if count > 0 {
		if err := s.db.WithContext(ctx).Model(jobPost).Update("is_active", false).Error; err != nil {
			return false, internal("deactivate job post", err)
		}
		return true, nil
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(jobPost).Error; err != nil {
		return false, internal("delete job post", err)
	}
	return false, nil
}

func (s *Service) ownedJobPost(ctx context.Context, companyID, jobPostID uint) (*database.JobPost, error) {
	var jobPost database.JobPost
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", jobPostID, companyID).
		First(&jobPost).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("job post not found")
	}
	if err != nil {
		return nil, internal("load job post", err)
	}
	return &jobPost, nil
}
