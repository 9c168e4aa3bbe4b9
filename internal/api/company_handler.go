package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"joblink/internal/api/middleware"
	"joblink/internal/database"
	"joblink/internal/workflow"
)

// CompanyHandler 聚合企业侧的全部接口。
type CompanyHandler struct {
	db          *gorm.DB
	workflow    *workflow.Service
	logger      *slog.Logger
	development bool
}

// NewCompanyHandler 构造企业处理器。
func NewCompanyHandler(db *gorm.DB, wf *workflow.Service, logger *slog.Logger, development bool) *CompanyHandler {
	return &CompanyHandler{db: db, workflow: wf, logger: logger, development: development}
}

// Dashboard 返回企业工作台的统计与最近投递。
func (h *CompanyHandler) Dashboard(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	var (
		activeJobCount    int64
		totalJobCount     int64
		applicationCount  int64
		subscriptionCount int64
	)
	h.db.WithContext(ctx).Model(&database.JobPost{}).
		Where("company_id = ? AND is_active = ?", actor.UserID, true).Count(&activeJobCount)
	h.db.WithContext(ctx).Model(&database.JobPost{}).
		Where("company_id = ?", actor.UserID).Count(&totalJobCount)
	h.db.WithContext(ctx).Model(&database.JobApplication{}).
		Where("job_post_id IN (?)",
			h.db.Model(&database.JobPost{}).Select("id").Where("company_id = ?", actor.UserID)).
		Count(&applicationCount)
	h.db.WithContext(ctx).Model(&database.CompanySubscription{}).
		Where("company_id = ?", actor.UserID).Count(&subscriptionCount)

	var recentApplications []database.JobApplication
	h.db.WithContext(ctx).
		Where("job_post_id IN (?)",
			h.db.Model(&database.JobPost{}).Select("id").Where("company_id = ?", actor.UserID)).
		Order("created_at DESC").Limit(5).
		Find(&recentApplications)

	applications := make([]gin.H, 0, len(recentApplications))
	for _, app := range recentApplications {
		item := gin.H{
			"id":        app.ID,
			"status":    app.Status,
			"appliedAt": app.CreatedAt,
		}
		var seeker database.User
		if err := h.db.WithContext(ctx).Select("id", "first_name", "last_name").First(&seeker, app.JobSeekerID).Error; err == nil {
			item["applicantName"] = seeker.FullName()
		}
		var jobPost database.JobPost
		if err := h.db.WithContext(ctx).Select("title").First(&jobPost, app.JobPostID).Error; err == nil {
			item["jobTitle"] = jobPost.Title
		}
		applications = append(applications, item)
	}

	OK(c, http.StatusOK, "", gin.H{
		"stats": gin.H{
			"activeJobPosts":     activeJobCount,
			"totalJobPosts":      totalJobCount,
			"totalApplications":  applicationCount,
			"totalSubscriptions": subscriptionCount,
		},
		"recentApplications": applications,
	})
}

// ListJobSeekers 列出可见性为 PUBLIC 的求职者，支持搜索与过滤。
func (h *CompanyHandler) ListJobSeekers(c *gin.Context) {
	ctx := c.Request.Context()
	page, limit := pageParams(c)

	query := h.db.WithContext(ctx).Model(&database.JobSeekerProfile{}).
		Where("visibility = ?", "PUBLIC")

	if profileType := c.Query("profileType"); profileType != "" {
		query = query.Where("profile_type = ?", profileType)
	}
	if skills := c.Query("skills"); skills != "" {
		query = query.Where("skills LIKE ?", "%"+skills+"%")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("user_id IN (?)",
			h.db.Model(&database.User{}).Select("id").
				Where("first_name LIKE ? OR last_name LIKE ?", "%"+search+"%", "%"+search+"%"))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		Internal(c, "Failed to fetch job seekers", err, h.development)
		return
	}

	var profiles []database.JobSeekerProfile
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&profiles).Error; err != nil {
		Internal(c, "Failed to fetch job seekers", err, h.development)
		return
	}

	jobSeekers := make([]gin.H, 0, len(profiles))
	for _, profile := range profiles {
		item := gin.H{
			"profileId":      profile.ID,
			"profileType":    profile.ProfileType,
			"bio":            profile.Bio,
			"skills":         profile.Skills,
			"education":      profile.Education,
			"experience":     profile.Experience,
			"certifications": profile.Certifications,
			"portfolio":      profile.Portfolio,
		}
		var seeker database.User
		if err := h.db.WithContext(ctx).Select("id", "first_name", "last_name", "role").First(&seeker, profile.UserID).Error; err == nil {
			item["userId"] = seeker.ID
			item["name"] = seeker.FullName()
		}
		jobSeekers = append(jobSeekers, item)
	}

	OK(c, http.StatusOK, "", gin.H{
		"jobSeekers": jobSeekers,
		"pagination": paginationBody(page, limit, total),
	})
}

type jobPostRequest struct {
	Title               string         `json:"title" binding:"required"`
	Description         string         `json:"description" binding:"required"`
	Industry            string         `json:"industry" binding:"required"`
	JobType             string         `json:"jobType" binding:"required"`
	Location            string         `json:"location"`
	ExperienceLevel     string         `json:"experienceLevel"`
	SalaryMin           *int           `json:"salaryMin"`
	SalaryMax           *int           `json:"salaryMax"`
	Requirements        datatypes.JSON `json:"requirements"`
	SkillsRequired      datatypes.JSON `json:"skillsRequired"`
	Benefits            datatypes.JSON `json:"benefits"`
	ApplicationDeadline time.Time      `json:"applicationDeadline" binding:"required"`
	HasChatArea         bool           `json:"hasChatArea"`
	IsRemote            bool           `json:"isRemote"`
}

// CreateJobPost 发布新职位。
func (h *CompanyHandler) CreateJobPost(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req jobPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "title, description, industry, job type, and deadline are required")
		return
	}

	jobPost, err := h.workflow.CreateJobPost(c.Request.Context(), actor.UserID, workflow.JobPostInput{
		Title:               req.Title,
		Description:         req.Description,
		Industry:            req.Industry,
		JobType:             req.JobType,
		Location:            req.Location,
		ExperienceLevel:     req.ExperienceLevel,
		SalaryMin:           req.SalaryMin,
		SalaryMax:           req.SalaryMax,
		Requirements:        req.Requirements,
		SkillsRequired:      req.SkillsRequired,
		Benefits:            req.Benefits,
		ApplicationDeadline: req.ApplicationDeadline,
		HasChatArea:         req.HasChatArea,
		IsRemote:            req.IsRemote,
	})
	if err != nil {
		FailWorkflow(c, err, "Failed to create job post", h.development)
		return
	}

	OK(c, http.StatusCreated, "Job post created successfully", gin.H{
		"jobPost": jobPostBody(jobPost),
	})
}

// ListMyJobPosts 列出企业自己的全部职位（含已停用），附带投递计数。
func (h *CompanyHandler) ListMyJobPosts(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()
	page, limit := pageParams(c)

	query := h.db.WithContext(ctx).Model(&database.JobPost{}).
		Where("company_id = ?", actor.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		Internal(c, "Failed to fetch job posts", err, h.development)
		return
	}

	var posts []database.JobPost
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&posts).Error; err != nil {
		Internal(c, "Failed to fetch job posts", err, h.development)
		return
	}

	jobPosts := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		var applicationCount int64
		h.db.WithContext(ctx).Model(&database.JobApplication{}).
			Where("job_post_id = ?", post.ID).Count(&applicationCount)

		body := jobPostBody(&post)
		body["applicationCount"] = applicationCount
		jobPosts = append(jobPosts, body)
	}

	OK(c, http.StatusOK, "", gin.H{
		"jobPosts":   jobPosts,
		"pagination": paginationBody(page, limit, total),
	})
}

type jobPostPatchRequest struct {
	Title               *string        `json:"title"`
	Description         *string        `json:"description"`
	Industry            *string        `json:"industry"`
	JobType             *string        `json:"jobType"`
	Location            *string        `json:"location"`
	ExperienceLevel     *string        `json:"experienceLevel"`
	SalaryMin           *int           `json:"salaryMin"`
	SalaryMax           *int           `json:"salaryMax"`
	Requirements        datatypes.JSON `json:"requirements"`
	SkillsRequired      datatypes.JSON `json:"skillsRequired"`
	Benefits            datatypes.JSON `json:"benefits"`
	ApplicationDeadline *time.Time     `json:"applicationDeadline"`
	IsRemote            *bool          `json:"isRemote"`
	IsActive            *bool          `json:"isActive"`
}

// UpdateJobPost 部分更新职位。
func (h *CompanyHandler) UpdateJobPost(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	jobPostID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid job post ID")
		return
	}

	var req jobPostPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	jobPost, wErr := h.workflow.UpdateJobPost(c.Request.Context(), actor.UserID, uint(jobPostID), workflow.JobPostPatch{
		Title:               req.Title,
		Description:         req.Description,
		Industry:            req.Industry,
		JobType:             req.JobType,
		Location:            req.Location,
		ExperienceLevel:     req.ExperienceLevel,
		SalaryMin:           req.SalaryMin,
		SalaryMax:           req.SalaryMax,
		Requirements:        req.Requirements,
		SkillsRequired:      req.SkillsRequired,
		Benefits:            req.Benefits,
		ApplicationDeadline: req.ApplicationDeadline,
		IsRemote:            req.IsRemote,
		IsActive:            req.IsActive,
	})
	if wErr != nil {
		FailWorkflow(c, wErr, "Failed to update job post", h.development)
		return
	}

	OK(c, http.StatusOK, "Job post updated successfully", gin.H{
		"jobPost": jobPostBody(jobPost),
	})
}

// DeleteJobPost 删除职位；存在投递时降级为停用。
func (h *CompanyHandler) DeleteJobPost(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	jobPostID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid job post ID")
		return
	}

	deactivated, wErr := h.workflow.DeleteJobPost(c.Request.Context(), actor.UserID, uint(jobPostID))
	if wErr != nil {
		FailWorkflow(c, wErr, "Failed to delete job post", h.development)
		return
	}

	message := "Job post deleted successfully"
	if deactivated {
		message = "Job post has applications and was deactivated instead of deleted"
	}
	OK(c, http.StatusOK, message, gin.H{"deactivated": deactivated})
}

// GetJobApplicants 列出某职位的投递者，支持按状态过滤。
func (h *CompanyHandler) GetJobApplicants(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	jobPostID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid job post ID")
		return
	}

	var jobPost database.JobPost
	dbErr := h.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", jobPostID, actor.UserID).
		First(&jobPost).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		NotFound(c, "Job post not found")
		return
	}
	if dbErr != nil {
		Internal(c, "Failed to fetch applicants", dbErr, h.development)
		return
	}

	query := h.db.WithContext(ctx).Where("job_post_id = ?", jobPostID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var applications []database.JobApplication
	if err := query.Order("created_at DESC").Find(&applications).Error; err != nil {
		Internal(c, "Failed to fetch applicants", err, h.development)
		return
	}

	applicants := make([]gin.H, 0, len(applications))
	for _, app := range applications {
		item := gin.H{
			"applicationId": app.ID,
			"status":        app.Status,
			"coverLetter":   app.CoverLetter,
			"appliedAt":     app.CreatedAt,
		}
		var seeker database.User
		if err := h.db.WithContext(ctx).Select("id", "first_name", "last_name", "email", "phone").First(&seeker, app.JobSeekerID).Error; err == nil {
			item["applicant"] = gin.H{
				"id":    seeker.ID,
				"name":  seeker.FullName(),
				"email": seeker.Email,
				"phone": seeker.Phone,
			}
		}
		if app.ResumeID != nil {
			var resume database.Resume
			if err := h.db.WithContext(ctx).First(&resume, *app.ResumeID).Error; err == nil {
				item["resume"] = gin.H{
					"id":     resume.ID,
					"title":  resume.Title,
					"custom": resume.Custom,
				}
			}
		}
		applicants = append(applicants, item)
	}

	OK(c, http.StatusOK, "", gin.H{
		"jobTitle":   jobPost.Title,
		"applicants": applicants,
	})
}

type updateStatusRequest struct {
	Status database.ApplicationStatus `json:"status" binding:"required"`
}

// UpdateApplicantStatus 更新某条投递的处理状态。
func (h *CompanyHandler) UpdateApplicantStatus(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	applicationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid application ID")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Status is required")
		return
	}

	application, wErr := h.workflow.UpdateApplicantStatus(c.Request.Context(), actor.UserID, uint(applicationID), req.Status)
	if wErr != nil {
		FailWorkflow(c, wErr, "Failed to update applicant status", h.development)
		return
	}

	OK(c, http.StatusOK, "Applicant status updated successfully", gin.H{
		"application": gin.H{
			"id":     application.ID,
			"status": application.Status,
		},
	})
}

type inviteRequest struct {
	JobSeekerID uint   `json:"jobSeekerId" binding:"required"`
	ProfileType string `json:"profileType" binding:"required"`
	Message     string `json:"message"`
}

// InviteJobSeeker 向求职者发出订阅邀约。
func (h *CompanyHandler) InviteJobSeeker(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Job seeker ID and profile type are required")
		return
	}

	invitation, err := h.workflow.Invite(c.Request.Context(), actor.UserID, req.JobSeekerID, req.ProfileType, req.Message)
	if err != nil {
		FailWorkflow(c, err, "Failed to send invitation", h.development)
		return
	}

	OK(c, http.StatusCreated, "Invitation sent successfully", gin.H{
		"invitation": gin.H{
			"id":          invitation.ID,
			"jobSeekerId": invitation.JobSeekerID,
			"profileType": invitation.ProfileType,
			"status":      invitation.Status,
			"expiresAt":   invitation.ExpiresAt,
		},
	})
}

type shareJobRequest struct {
	JobPostID   uint `json:"jobPostId" binding:"required"`
	JobSeekerID uint `json:"jobSeekerId" binding:"required"`
}

// ShareJob 把自家职位定向分享给某位求职者，走通知旁路。
func (h *CompanyHandler) ShareJob(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	var req shareJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Job post ID and job seeker ID are required")
		return
	}

	var jobPost database.JobPost
	err := h.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", req.JobPostID, actor.UserID).
		First(&jobPost).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "Job post not found")
		return
	}
	if err != nil {
		Internal(c, "Failed to share job", err, h.development)
		return
	}

	var seeker database.User
	err = h.db.WithContext(ctx).
		Where("id = ? AND role = ?", req.JobSeekerID, database.RoleJobSeeker).
		First(&seeker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "Job seeker not found")
		return
	}
	if err != nil {
		Internal(c, "Failed to share job", err, h.development)
		return
	}

	var company database.User
	companyName := "A company"
	if err := h.db.WithContext(ctx).Select("company_name").First(&company, actor.UserID).Error; err == nil {
		companyName = company.CompanyName
	}

	h.workflow.Notifier().Notify(ctx, seeker.ID,
		database.NotificationJobShared,
		"Job Shared With You",
		fmt.Sprintf("%s shared a job with you: %s", companyName, jobPost.Title),
		jobPost.ID,
	)

	OK(c, http.StatusOK, "Job shared successfully", nil)
}

func jobPostBody(post *database.JobPost) gin.H {
	return gin.H{
		"id":                  post.ID,
		"title":               post.Title,
		"description":         post.Description,
		"industry":            post.Industry,
		"jobType":             post.JobType,
		"location":            post.Location,
		"experienceLevel":     post.ExperienceLevel,
		"salaryMin":           post.SalaryMin,
		"salaryMax":           post.SalaryMax,
		"requirements":        post.Requirements,
		"skillsRequired":      post.SkillsRequired,
		"benefits":            post.Benefits,
		"applicationDeadline": post.ApplicationDeadline,
		"hasChatArea":         post.HasChatArea,
		"isRemote":            post.IsRemote,
		"isActive":            post.IsActive,
		"createdAt":           post.CreatedAt,
	}
}
