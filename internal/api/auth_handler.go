package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"joblink/internal/api/middleware"
	"joblink/internal/auth"
	"joblink/internal/config"
	"joblink/internal/database"
	"joblink/internal/session"
)

// 乌干达手机号：+256 或 0 开头，第二位 1/7，后接 8 位数字。
var phonePattern = regexp.MustCompile(`^(\+?256|0)[17]\d{8}$`)

// AuthHandler 处理注册、登录、退出、隐私设置与登录活动。
type AuthHandler struct {
	db           *gorm.DB
	sessions     *session.Store
	redis        redis.UniversalClient
	tickets      *auth.TicketService
	logger       *slog.Logger
	login        config.LoginConfig
	cookieName   string
	cookieDomain string
	development  bool
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(
	db *gorm.DB,
	sessions *session.Store,
	redisClient redis.UniversalClient,
	tickets *auth.TicketService,
	logger *slog.Logger,
	loginCfg config.LoginConfig,
	apiCfg config.APIConfig,
	cookieName string,
) *AuthHandler {
	return &AuthHandler{
		db:          db,
		sessions:    sessions,
		redis:       redisClient,
		tickets:     tickets,
		logger:      logger,
		login:       loginCfg,
		cookieName:  cookieName,
		cookieDomain: apiCfg.CookieDomain,
		development: apiCfg.IsDevelopment(),
	}
}

type registerJobSeekerRequest struct {
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	PhoneNumber     string `json:"phoneNumber" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	AgreeToTerms    bool   `json:"agreeToTerms"`
}

// RegisterJobSeeker 创建求职者账号与默认资料。
func (h *AuthHandler) RegisterJobSeeker(c *gin.Context) {
	var req registerJobSeekerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "All fields are required")
		return
	}
	if !req.AgreeToTerms {
		BadRequest(c, "You must agree to the terms and conditions")
		return
	}
	if req.Password != req.ConfirmPassword {
		BadRequest(c, "Passwords do not match")
		return
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		BadRequest(c, "Please provide a valid Ugandan phone number")
		return
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.PhoneNumber)

	if taken, err := h.userExists(ctx, "email = ?", email); err != nil {
		Internal(c, "Registration failed. Please try again.", err, h.development)
		return
	} else if taken {
		BadRequest(c, "User with this email already exists")
		return
	}
	if taken, err := h.userExists(ctx, "phone = ?", phone); err != nil {
		Internal(c, "Registration failed. Please try again.", err, h.development)
		return
	} else if taken {
		BadRequest(c, "User with this phone number already exists")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "Registration failed. Please try again.", err, h.development)
		return
	}

	user := database.User{
		Email:              email,
		Phone:              phone,
		PasswordHash:       hashed,
		Role:               database.RoleJobSeeker,
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		SubscriptionStatus: "INACTIVE",
		VerificationStatus: "PENDING",
	}

	txErr := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := database.JobSeekerProfile{
			UserID:      user.ID,
			ProfileType: database.ProfileTypeEmployable,
			Visibility:  "PRIVATE",
		}
		return tx.Create(&profile).Error
	})
	if txErr != nil {
		logger.Error("register jobseeker failed", slog.Any("error", txErr))
		Internal(c, "Registration failed. Please try again.", txErr, h.development)
		return
	}

	logger.Info("jobseeker registered", slog.Uint64("user_id", uint64(user.ID)))
	OK(c, http.StatusCreated, "Account created successfully. Please login.", gin.H{
		"redirectTo": "/login",
		"userId":     user.ID,
	})
}

type registerCompanyRequest struct {
	CompanyName           string `json:"companyName" binding:"required"`
	Email                 string `json:"email" binding:"required,email"`
	Password              string `json:"password" binding:"required"`
	ConfirmPassword       string `json:"confirmPassword" binding:"required"`
	Industry              string `json:"industry" binding:"required"`
	Phone                 string `json:"phone" binding:"required"`
	Address               string `json:"address" binding:"required"`
	CompanySize           string `json:"companySize" binding:"required"`
	EstablishmentYear     int    `json:"establishmentYear" binding:"required"`
	Description           string `json:"description" binding:"required"`
	ContactPersonName     string `json:"contactPersonName" binding:"required"`
	ContactPersonPosition string `json:"contactPersonPosition" binding:"required"`
	Website               string `json:"website"`
	Linkedin              string `json:"linkedin"`
	AgreeToTerms          bool   `json:"agreeToTerms"`
}

// RegisterCompany 创建企业账号与企业资料。
func (h *AuthHandler) RegisterCompany(c *gin.Context) {
	var req registerCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "All fields are required")
		return
	}
	if !req.AgreeToTerms {
		BadRequest(c, "You must agree to the terms and conditions")
		return
	}
	if req.Password != req.ConfirmPassword {
		BadRequest(c, "Passwords do not match")
		return
	}
	if !phonePattern.MatchString(req.Phone) {
		BadRequest(c, "Please provide a valid Ugandan phone number")
		return
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if taken, err := h.userExists(ctx, "email = ?", email); err != nil {
		Internal(c, "Company registration failed", err, h.development)
		return
	} else if taken {
		BadRequest(c, "Company with this email already exists")
		return
	}
	if taken, err := h.userExists(ctx, "phone = ?", strings.TrimSpace(req.Phone)); err != nil {
		Internal(c, "Company registration failed", err, h.development)
		return
	} else if taken {
		BadRequest(c, "User with this phone number already exists")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		Internal(c, "Company registration failed", err, h.development)
		return
	}

	user := database.User{
		Email:              email,
		Phone:              strings.TrimSpace(req.Phone),
		PasswordHash:       hashed,
		Role:               database.RoleCompany,
		CompanyName:        strings.TrimSpace(req.CompanyName),
		SubscriptionStatus: "INACTIVE",
		VerificationStatus: "PENDING",
	}

	txErr := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := database.CompanyProfile{
			UserID:                user.ID,
			Industry:              req.Industry,
			CompanySize:           req.CompanySize,
			EstablishmentYear:     req.EstablishmentYear,
			Description:           strings.TrimSpace(req.Description),
			Address:               strings.TrimSpace(req.Address),
			Website:               req.Website,
			Linkedin:              req.Linkedin,
			ContactPersonName:     strings.TrimSpace(req.ContactPersonName),
			ContactPersonPosition: strings.TrimSpace(req.ContactPersonPosition),
		}
		return tx.Create(&profile).Error
	})
	if txErr != nil {
		logger.Error("register company failed", slog.Any("error", txErr))
		Internal(c, "Company registration failed", txErr, h.development)
		return
	}

	OK(c, http.StatusCreated, "Company account created successfully. Please login.", gin.H{
		"redirectTo": "/login",
		"companyId":  user.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginUserView struct {
	ID                 uint              `json:"id"`
	Email              string            `json:"email"`
	Role               database.UserRole `json:"userType"`
	FirstName          string            `json:"firstName,omitempty"`
	LastName           string            `json:"lastName,omitempty"`
	CompanyName        string            `json:"companyName,omitempty"`
	Phone              string            `json:"phone"`
	Points             int               `json:"points"`
	SubscriptionStatus string            `json:"subscriptionStatus"`
	VerificationStatus string            `json:"verificationStatus"`
}

// Login 校验口令，记录登录活动并建立服务端会话。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Email and password are required")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := c.ClientIP()

	// 速率限制：每 IP+邮箱 每小时固定次数。
	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if h.login.RateLimitPerHour > 0 && count > int64(h.login.RateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many login attempts, try again later"})
		return
	}

	// 锁定检查。
	lockKey := "lock:login:" + email
	if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Account temporarily locked"})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = h.incrementLoginFail(ctx, email)
			Unauthorized(c, "Invalid email or password")
			return
		}
		Internal(c, "Login failed", err, h.development)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		_ = h.incrementLoginFail(ctx, email)
		Unauthorized(c, "Invalid email or password")
		return
	}

	// 登录成功：清理失败计数。
	_ = h.redis.Del(ctx, "lock:login:fail:"+email).Err()

	loginSession := database.LoginSession{
		UserID:    user.ID,
		IPAddress: ip,
		UserAgent: c.Request.UserAgent(),
	}
	if err := h.db.WithContext(ctx).Create(&loginSession).Error; err != nil {
		logger.Warn("record login session failed", slog.Any("error", err))
	}

	token, err := h.sessions.Create(ctx, session.Session{
		UserID:         user.ID,
		Role:           user.Role,
		Email:          user.Email,
		LoginSessionID: loginSession.ID,
	})
	if err != nil {
		logger.Error("create session failed", slog.Any("error", err))
		Internal(c, "Login failed", err, h.development)
		return
	}
	h.setSessionCookie(c, token, int(h.sessions.TTL().Seconds()))

	redirectTo := "/dashboard"
	switch user.Role {
	case database.RoleJobSeeker:
		redirectTo = "/jobseeker/dashboard"
	case database.RoleCompany:
		redirectTo = "/company/dashboard"
	}

	OK(c, http.StatusOK, "Login successful", gin.H{
		"user": loginUserView{
			ID:                 user.ID,
			Email:              user.Email,
			Role:               user.Role,
			FirstName:          user.FirstName,
			LastName:           user.LastName,
			CompanyName:        user.CompanyName,
			Phone:              user.Phone,
			Points:             user.Points,
			SubscriptionStatus: user.SubscriptionStatus,
			VerificationStatus: user.VerificationStatus,
		},
		"redirectTo": redirectTo,
	})
}

// Logout 销毁当前会话并清除 Cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err == nil && token != "" {
		if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
			middleware.LoggerFromContext(c).Warn("delete session failed", slog.Any("error", err))
		}
	}
	h.setSessionCookie(c, "", -1)
	OK(c, http.StatusOK, "Logged out successfully", nil)
}

// WsTicket 为已登录用户签发 WebSocket 连接票据。
func (h *AuthHandler) WsTicket(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		Unauthorized(c, "Not authenticated")
		return
	}

	ticket, err := h.tickets.IssueTicket(actor.UserID)
	if err != nil {
		Internal(c, "Failed to issue ticket", err, h.development)
		return
	}

	OK(c, http.StatusOK, "", gin.H{
		"ticket":    ticket,
		"expiresIn": int(h.tickets.TTL().Seconds()),
	})
}

// GetPrivacySettings 返回账号基础字段与隐私设置。
func (h *AuthHandler) GetPrivacySettings(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found")
			return
		}
		Internal(c, "Failed to fetch privacy settings", err, h.development)
		return
	}

	OK(c, http.StatusOK, "", gin.H{
		"privacySettings": gin.H{
			"id":              user.ID,
			"email":           user.Email,
			"firstName":       user.FirstName,
			"lastName":        user.LastName,
			"phone":           user.Phone,
			"privacySettings": user.PrivacySettings,
			"userType":        user.Role,
		},
	})
}

type updatePrivacyRequest struct {
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	Phone           string         `json:"phone"`
	PrivacySettings datatypes.JSON `json:"privacySettings"`
}

// UpdatePrivacySettings 更新账号基础字段与隐私设置，空字段保持原值。
func (h *AuthHandler) UpdatePrivacySettings(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req updatePrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	updates := map[string]any{}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.Phone != "" {
		if !phonePattern.MatchString(req.Phone) {
			BadRequest(c, "Please provide a valid Ugandan phone number")
			return
		}
		updates["phone"] = req.Phone
	}
	if req.PrivacySettings != nil {
		updates["privacy_settings"] = req.PrivacySettings
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).
			Model(&database.User{}).
			Where("id = ?", actor.UserID).
			Updates(updates).Error; err != nil {
			Internal(c, "Failed to update privacy settings", err, h.development)
			return
		}
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, actor.UserID).Error; err != nil {
		Internal(c, "Failed to update privacy settings", err, h.development)
		return
	}

	OK(c, http.StatusOK, "Privacy settings updated successfully", gin.H{
		"privacySettings": gin.H{
			"id":              user.ID,
			"email":           user.Email,
			"firstName":       user.FirstName,
			"lastName":        user.LastName,
			"phone":           user.Phone,
			"privacySettings": user.PrivacySettings,
		},
	})
}

// GetLoginActivity 返回最近十次登录记录。
func (h *AuthHandler) GetLoginActivity(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var sessions []database.LoginSession
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", actor.UserID).
		Order("created_at DESC").
		Limit(10).
		Find(&sessions).Error; err != nil {
		Internal(c, "Failed to fetch login activity", err, h.development)
		return
	}

	activities := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		activities = append(activities, gin.H{
			"id":        s.ID,
			"loginTime": s.CreatedAt,
			"ipAddress": s.IPAddress,
			"userAgent": s.UserAgent,
			"isActive":  s.IsActive,
			"current":   s.ID == actor.LoginSessionID,
		})
	}

	OK(c, http.StatusOK, "", gin.H{"activities": activities})
}

// SignOutAllDevices 使全部会话失效并停用登录记录。
func (h *AuthHandler) SignOutAllDevices(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	if err := h.db.WithContext(ctx).
		Model(&database.LoginSession{}).
		Where("user_id = ? AND is_active = ?", actor.UserID, true).
		Update("is_active", false).Error; err != nil {
		Internal(c, "Failed to sign out from all devices", err, h.development)
		return
	}

	if err := h.sessions.DeleteAllForUser(ctx, actor.UserID); err != nil {
		Internal(c, "Failed to sign out from all devices", err, h.development)
		return
	}

	h.setSessionCookie(c, "", -1)
	OK(c, http.StatusOK, "Signed out from all devices successfully", nil)
}

func (h *AuthHandler) userExists(ctx context.Context, query string, arg any) (bool, error) {
	var user database.User
	err := h.db.WithContext(ctx).Select("id").Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   strings.TrimSpace(h.cookieDomain),
	})
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, email string) error {
	failKey := "lock:login:fail:" + email
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, h.login.LockTTL).Err()
	}
	if h.login.LockThreshold > 0 && count >= int64(h.login.LockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+email, "1", h.login.LockTTL).Err()
	}
	return nil
}
