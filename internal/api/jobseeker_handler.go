package api

import (
	"errors"
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

// JobSeekerHandler 聚合求职者侧的全部接口。
type JobSeekerHandler struct {
	db          *gorm.DB
	workflow    *workflow.Service
	logger      *slog.Logger
	development bool
}

// NewJobSeekerHandler 构造求职者处理器。
func NewJobSeekerHandler(db *gorm.DB, wf *workflow.Service, logger *slog.Logger, development bool) *JobSeekerHandler {
	return &JobSeekerHandler{db: db, workflow: wf, logger: logger, development: development}
}

// Dashboard 返回求职者工作台的统计与最近动态。
func (h *JobSeekerHandler) Dashboard(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	var (
		applicationCount int64
		subscriberCount  int64
		invitationCount  int64
		unreadCount      int64
	)
	h.db.WithContext(ctx).Model(&database.JobApplication{}).
		Where("job_seeker_id = ?", actor.UserID).Count(&applicationCount)
	h.db.WithContext(ctx).Model(&database.CompanySubscription{}).
		Where("job_seeker_id = ?", actor.UserID).Count(&subscriberCount)
	h.db.WithContext(ctx).Model(&database.Invitation{}).
		Where("job_seeker_id = ? AND status = ? AND expires_at > ?", actor.UserID, database.InvitationPending, time.Now()).
		Count(&invitationCount)
	h.db.WithContext(ctx).Model(&database.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.UserID, false).Count(&unreadCount)

	var recentApplications []database.JobApplication
	h.db.WithContext(ctx).
		Where("job_seeker_id = ?", actor.UserID).
		Order("created_at DESC").Limit(5).
		Find(&recentApplications)

	applications := make([]gin.H, 0, len(recentApplications))
	for _, app := range recentApplications {
		item := gin.H{
			"id":        app.ID,
			"status":    app.Status,
			"appliedAt": app.CreatedAt,
		}
		var jobPost database.JobPost
		if err := h.db.WithContext(ctx).First(&jobPost, app.JobPostID).Error; err == nil {
			item["jobTitle"] = jobPost.Title
			var company database.User
			if err := h.db.WithContext(ctx).Select("company_name").First(&company, jobPost.CompanyID).Error; err == nil {
				item["companyName"] = company.CompanyName
			}
		}
		applications = append(applications, item)
	}

	OK(c, http.StatusOK, "", gin.H{
		"stats": gin.H{
			"totalApplications":   applicationCount,
			"totalSubscriptions":  subscriberCount,
			"pendingInvitations":  invitationCount,
			"unreadNotifications": unreadCount,
		},
		"recentApplications": applications,
	})
}

// ListCompanies 列出已认证企业，支持搜索与行业、规模过滤。
func (h *JobSeekerHandler) ListCompanies(c *gin.Context) {
	ctx := c.Request.Context()
	page, limit := pageParams(c)

	query := h.db.WithContext(ctx).Model(&database.User{}).
		Where("role = ? AND verification_status = ?", database.RoleCompany, "VERIFIED")

	if search := c.Query("search"); search != "" {
		query = query.Where("company_name LIKE ?", "%"+search+"%")
	}

	industry := c.Query("industry")
	companySize := c.Query("companySize")
	if industry != "" || companySize != "" {
		profiles := h.db.Model(&database.CompanyProfile{}).Select("user_id")
		if industry != "" {
			profiles = profiles.Where("industry = ?", industry)
		}
		if companySize != "" {
			profiles = profiles.Where("company_size = ?", companySize)
		}
		query = query.Where("id IN (?)", profiles)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		Internal(c, "Failed to fetch companies", err, h.development)
		return
	}

	var users []database.User
	if err := query.Order("company_name ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		Internal(c, "Failed to fetch companies", err, h.development)
		return
	}

	companies := make([]gin.H, 0, len(users))
	for _, user := range users {
		item := gin.H{
			"id":          user.ID,
			"companyName": user.CompanyName,
			"email":       user.Email,
		}
		var profile database.CompanyProfile
		if err := h.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
			item["industry"] = profile.Industry
			item["companySize"] = profile.CompanySize
			item["description"] = profile.Description
			item["website"] = profile.Website
			item["logo"] = profile.Logo
		}
		companies = append(companies, item)
	}

	OK(c, http.StatusOK, "", gin.H{
		"companies":  companies,
		"pagination": paginationBody(page, limit, total),
	})
}

// ListJobPosts 列出在线且未过截止的职位，附带企业信息与投递计数。
func (h *JobSeekerHandler) ListJobPosts(c *gin.Context) {
	ctx := c.Request.Context()
	page, limit := pageParams(c)

	query := h.db.WithContext(ctx).Model(&database.JobPost{}).
		Where("is_active = ? AND application_deadline > ?", true, time.Now())

	if search := c.Query("search"); search != "" {
		query = query.Where("title LIKE ? OR description LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if industry := c.Query("industry"); industry != "" {
		query = query.Where("industry = ?", industry)
	}
	if jobType := c.Query("jobType"); jobType != "" {
		query = query.Where("job_type = ?", jobType)
	}
	if location := c.Query("location"); location != "" {
		query = query.Where("location LIKE ?", "%"+location+"%")
	}
	if c.Query("isRemote") == "true" {
		query = query.Where("is_remote = ?", true)
	}

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

		item := gin.H{
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
			"applicationCount":    applicationCount,
			"postedAt":            post.CreatedAt,
		}
		var company database.User
		if err := h.db.WithContext(ctx).Select("id", "company_name").First(&company, post.CompanyID).Error; err == nil {
			item["company"] = gin.H{"id": company.ID, "companyName": company.CompanyName}
		}
		jobPosts = append(jobPosts, item)
	}

	OK(c, http.StatusOK, "", gin.H{
		"jobPosts":   jobPosts,
		"pagination": paginationBody(page, limit, total),
	})
}

type applyRequest struct {
	JobPostID    uint                 `json:"jobPostId" binding:"required"`
	ResumeID     *uint                `json:"resumeId"`
	CoverLetter  string               `json:"coverLetter"`
	CustomResume *customResumePayload `json:"customResume"`
}

type customResumePayload struct {
	Summary    string         `json:"summary"`
	Experience string         `json:"experience"`
	Education  string         `json:"education"`
	Skills     datatypes.JSON `json:"skills"`
}

// Apply 提交一次投递。
func (h *JobSeekerHandler) Apply(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Job post ID is required")
		return
	}

	input := workflow.ApplyInput{
		JobSeekerID: actor.UserID,
		JobPostID:   req.JobPostID,
		ResumeID:    req.ResumeID,
		CoverLetter: req.CoverLetter,
	}
	if req.CustomResume != nil {
		input.CustomResume = &workflow.CustomResume{
			Summary:    req.CustomResume.Summary,
			Experience: req.CustomResume.Experience,
			Education:  req.CustomResume.Education,
			Skills:     req.CustomResume.Skills,
		}
	}

	application, err := h.workflow.Apply(c.Request.Context(), input)
	if err != nil {
		FailWorkflow(c, err, "Failed to submit application", h.development)
		return
	}

	OK(c, http.StatusCreated, "Application submitted successfully", gin.H{
		"application": gin.H{
			"id":        application.ID,
			"jobPostId": application.JobPostID,
			"status":    application.Status,
			"appliedAt": application.CreatedAt,
		},
	})
}

type subscribeRequest struct {
	CompanyID   uint   `json:"companyId" binding:"required"`
	ProfileType string `json:"profileType" binding:"required"`
}

// Subscribe 订阅企业。
func (h *JobSeekerHandler) Subscribe(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Company ID and profile type are required")
		return
	}

	subscription, err := h.workflow.Subscribe(c.Request.Context(), actor.UserID, req.CompanyID, req.ProfileType)
	if err != nil {
		FailWorkflow(c, err, "Failed to subscribe", h.development)
		return
	}

	OK(c, http.StatusCreated, "Subscribed successfully", gin.H{
		"subscription": gin.H{
			"id":          subscription.ID,
			"companyId":   subscription.CompanyID,
			"profileType": subscription.ProfileType,
		},
	})
}

// ListInvitations 列出收到的邀约，附带企业名。
func (h *JobSeekerHandler) ListInvitations(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	var invitations []database.Invitation
	if err := h.db.WithContext(ctx).
		Where("job_seeker_id = ?", actor.UserID).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		Internal(c, "Failed to fetch invitations", err, h.development)
		return
	}

	items := make([]gin.H, 0, len(invitations))
	for _, inv := range invitations {
		item := gin.H{
			"id":          inv.ID,
			"profileType": inv.ProfileType,
			"message":     inv.Message,
			"status":      inv.Status,
			"expiresAt":   inv.ExpiresAt,
			"receivedAt":  inv.CreatedAt,
		}
		var company database.User
		if err := h.db.WithContext(ctx).Select("id", "company_name").First(&company, inv.CompanyID).Error; err == nil {
			item["company"] = gin.H{"id": company.ID, "companyName": company.CompanyName}
		}
		items = append(items, item)
	}

	OK(c, http.StatusOK, "", gin.H{"invitations": items})
}

type respondInvitationRequest struct {
	Action string `json:"action" binding:"required"`
}

// RespondToInvitation 接受或拒绝一条邀约。
func (h *JobSeekerHandler) RespondToInvitation(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	invitationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid invitation ID")
		return
	}

	var req respondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "action must be 'accept' or 'decline'")
		return
	}

	invitation, wErr := h.workflow.RespondToInvitation(c.Request.Context(), actor.UserID, uint(invitationID), req.Action)
	if wErr != nil {
		FailWorkflow(c, wErr, "Failed to respond to invitation", h.development)
		return
	}

	message := "Invitation declined"
	if invitation.Status == database.InvitationAccepted {
		message = "Invitation accepted and subscription created"
	}
	OK(c, http.StatusOK, message, gin.H{
		"invitation": gin.H{
			"id":     invitation.ID,
			"status": invitation.Status,
		},
	})
}

// ApplicationTracking 返回投递跟踪明细与分状态统计。
// 该功能仅对订阅状态为 ACTIVE 的账号开放。
func (h *JobSeekerHandler) ApplicationTracking(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, actor.UserID).Error; err != nil {
		Internal(c, "Failed to fetch application tracking", err, h.development)
		return
	}
	if user.SubscriptionStatus != "ACTIVE" {
		Forbidden(c, "Application tracking requires an active subscription")
		return
	}

	var applications []database.JobApplication
	if err := h.db.WithContext(ctx).
		Where("job_seeker_id = ?", actor.UserID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		Internal(c, "Failed to fetch application tracking", err, h.development)
		return
	}

	stats := map[database.ApplicationStatus]int{}
	items := make([]gin.H, 0, len(applications))
	for _, app := range applications {
		stats[app.Status]++

		item := gin.H{
			"id":        app.ID,
			"status":    app.Status,
			"appliedAt": app.CreatedAt,
			"updatedAt": app.UpdatedAt,
		}
		var jobPost database.JobPost
		if err := h.db.WithContext(ctx).First(&jobPost, app.JobPostID).Error; err == nil {
			item["jobTitle"] = jobPost.Title
			var company database.User
			if err := h.db.WithContext(ctx).Select("company_name").First(&company, jobPost.CompanyID).Error; err == nil {
				item["companyName"] = company.CompanyName
			}
		}
		items = append(items, item)
	}

	OK(c, http.StatusOK, "", gin.H{
		"applications": items,
		"stats": gin.H{
			"total":              len(applications),
			"notViewed":          stats[database.ApplicationNotViewed],
			"viewed":             stats[database.ApplicationViewed],
			"shortlisted":        stats[database.ApplicationShortlisted],
			"interviewScheduled": stats[database.ApplicationInterviewScheduled],
			"rejected":           stats[database.ApplicationRejected],
			"accepted":           stats[database.ApplicationAccepted],
		},
	})
}

// GetProfile 返回求职者资料。
func (h *JobSeekerHandler) GetProfile(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var profile database.JobSeekerProfile
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", actor.UserID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "Profile not found")
		return
	}
	if err != nil {
		Internal(c, "Failed to fetch profile", err, h.development)
		return
	}

	OK(c, http.StatusOK, "", gin.H{"profile": profileView(profile)})
}

type upsertProfileRequest struct {
	ProfileType    string         `json:"profileType" binding:"required"`
	Bio            string         `json:"bio" binding:"required"`
	Skills         datatypes.JSON `json:"skills" binding:"required"`
	Education      string         `json:"education" binding:"required"`
	Experience     string         `json:"experience"`
	Certifications string         `json:"certifications"`
	Portfolio      string         `json:"portfolio"`
	Visibility     string         `json:"visibility"`
}

// UpsertProfile 创建或整体更新求职者资料。
func (h *JobSeekerHandler) UpsertProfile(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req upsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Profile type, bio, skills, and education are required")
		return
	}
	if req.ProfileType != database.ProfileTypeEmployable && req.ProfileType != database.ProfileTypeVirtualIntern {
		BadRequest(c, "valid profile type is required (EMPLOYABLE or VIRTUAL_INTERN)")
		return
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = "PRIVATE"
	}
	if visibility != "PUBLIC" && visibility != "PRIVATE" {
		BadRequest(c, "visibility must be PUBLIC or PRIVATE")
		return
	}

	ctx := c.Request.Context()
	var profile database.JobSeekerProfile
	err := h.db.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&profile).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		Internal(c, "Failed to save profile", err, h.development)
		return
	}

	profile.UserID = actor.UserID
	profile.ProfileType = req.ProfileType
	profile.Bio = req.Bio
	profile.Skills = req.Skills
	profile.Education = req.Education
	profile.Experience = req.Experience
	profile.Certifications = req.Certifications
	profile.Portfolio = req.Portfolio
	profile.Visibility = visibility

	if err := h.db.WithContext(ctx).Save(&profile).Error; err != nil {
		Internal(c, "Failed to save profile", err, h.development)
		return
	}

	status := http.StatusOK
	message := "Profile updated successfully"
	if created {
		status = http.StatusCreated
		message = "Profile created successfully"
	}
	OK(c, status, message, gin.H{"profile": profileView(profile)})
}

func profileView(profile database.JobSeekerProfile) gin.H {
	return gin.H{
		"id":             profile.ID,
		"profileType":    profile.ProfileType,
		"bio":            profile.Bio,
		"skills":         profile.Skills,
		"education":      profile.Education,
		"experience":     profile.Experience,
		"certifications": profile.Certifications,
		"portfolio":      profile.Portfolio,
		"visibility":     profile.Visibility,
	}
}
