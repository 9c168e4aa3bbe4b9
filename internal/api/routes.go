package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"joblink/internal/api/middleware"
	"joblink/internal/auth"
	"joblink/internal/config"
	"joblink/internal/database"
	"joblink/internal/session"
	"joblink/internal/storage"
	"joblink/internal/workflow"
)

// RegisterRoutes 注册全部 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	sessions *session.Store,
	tickets *auth.TicketService,
	wf *workflow.Service,
	storageClient *storage.Client,
	logger *slog.Logger,
) {
	development := cfg.API.IsDevelopment()

	authHandler := NewAuthHandler(db, sessions, redisClient, tickets, logger, cfg.Login, cfg.API, cfg.Session.CookieName)
	jobSeekerHandler := NewJobSeekerHandler(db, wf, logger, development)
	companyHandler := NewCompanyHandler(db, wf, logger, development)
	chatHandler := NewChatHandler(wf, logger, development)
	notificationHandler := NewNotificationHandler(db, logger, development)
	resumeHandler := NewResumeHandler(db, storageClient, cfg.Clamd.Addr, logger, development)
	wsHandler := NewWsHandler(redisClient, tickets, logger, nil)

	sessionAuth := middleware.SessionAuth(sessions, cfg.Session.CookieName)
	requireJobSeeker := middleware.RequireRole(database.RoleJobSeeker, "This area is for job seekers only")
	requireCompany := middleware.RequireRole(database.RoleCompany, "This area is for companies only")

	router.GET("/ws", wsHandler.HandleConnection)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register/jobseeker", authHandler.RegisterJobSeeker)
		authGroup.POST("/register/company", authHandler.RegisterCompany)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", sessionAuth, authHandler.Logout)
		authGroup.GET("/ws-ticket", sessionAuth, authHandler.WsTicket)
		authGroup.GET("/privacy-settings", sessionAuth, authHandler.GetPrivacySettings)
		authGroup.PUT("/privacy-settings", sessionAuth, authHandler.UpdatePrivacySettings)
		authGroup.GET("/login-activity", sessionAuth, authHandler.GetLoginActivity)
		authGroup.POST("/sign-out-all", sessionAuth, authHandler.SignOutAllDevices)
	}

	notificationGroup := api.Group("/notifications", sessionAuth)
	{
		notificationGroup.GET("", notificationHandler.List)
		notificationGroup.PATCH("/:id/read", notificationHandler.MarkRead)
		notificationGroup.PATCH("/read-all", notificationHandler.MarkAllRead)
	}

	chatGroup := api.Group("/chat", sessionAuth)
	{
		chatGroup.GET("/areas", chatHandler.ListAreas)
		chatGroup.GET("/areas/:id/messages", chatHandler.History)
		chatGroup.POST("/areas/:id/messages", chatHandler.SendMessage)
	}

	jobSeekerGroup := api.Group("/jobseeker", sessionAuth, requireJobSeeker)
	{
		jobSeekerGroup.GET("/dashboard", jobSeekerHandler.Dashboard)
		jobSeekerGroup.GET("/companies", jobSeekerHandler.ListCompanies)
		jobSeekerGroup.GET("/jobs", jobSeekerHandler.ListJobPosts)
		jobSeekerGroup.POST("/applications", jobSeekerHandler.Apply)
		jobSeekerGroup.GET("/applications/tracking", jobSeekerHandler.ApplicationTracking)
		jobSeekerGroup.POST("/subscriptions", jobSeekerHandler.Subscribe)
		jobSeekerGroup.GET("/invitations", jobSeekerHandler.ListInvitations)
		jobSeekerGroup.POST("/invitations/:id/respond", jobSeekerHandler.RespondToInvitation)
		jobSeekerGroup.GET("/profile", jobSeekerHandler.GetProfile)
		jobSeekerGroup.PUT("/profile", jobSeekerHandler.UpsertProfile)

		jobSeekerGroup.POST("/resumes", resumeHandler.CreateResume)
		jobSeekerGroup.GET("/resumes", resumeHandler.ListResumes)
		jobSeekerGroup.POST("/resumes/upload", resumeHandler.UploadResume)
		jobSeekerGroup.GET("/resumes/:id/download-link", resumeHandler.DownloadLink)
		jobSeekerGroup.DELETE("/resumes/:id", resumeHandler.DeleteResume)
	}

	companyGroup := api.Group("/company", sessionAuth, requireCompany)
	{
		companyGroup.GET("/dashboard", companyHandler.Dashboard)
		companyGroup.GET("/jobseekers", companyHandler.ListJobSeekers)
		companyGroup.GET("/job-posts", companyHandler.ListMyJobPosts)
		companyGroup.POST("/job-posts", companyHandler.CreateJobPost)
		companyGroup.PUT("/job-posts/:id", companyHandler.UpdateJobPost)
		companyGroup.DELETE("/job-posts/:id", companyHandler.DeleteJobPost)
		companyGroup.GET("/job-posts/:id/applicants", companyHandler.GetJobApplicants)
		companyGroup.PATCH("/applications/:id/status", companyHandler.UpdateApplicantStatus)
		companyGroup.POST("/invitations", companyHandler.InviteJobSeeker)
		companyGroup.POST("/share-job", companyHandler.ShareJob)
	}
}
