package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"joblink/internal/api/middleware"
	"joblink/internal/database"
	"joblink/internal/storage"
)

// ResumeHandler 负责简历的结构化创建、文件上传与下载链接。
type ResumeHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	clamdAddr   string
	logger      *slog.Logger
	development bool
}

// NewResumeHandler 构造简历处理器。clamdAddr 为空时跳过病毒扫描。
func NewResumeHandler(db *gorm.DB, storageClient *storage.Client, clamdAddr string, logger *slog.Logger, development bool) *ResumeHandler {
	return &ResumeHandler{
		db:          db,
		storage:     storageClient,
		clamdAddr:   clamdAddr,
		logger:      logger,
		development: development,
	}
}

type createResumeRequest struct {
	Title      string         `json:"title" binding:"required"`
	Summary    string         `json:"summary"`
	Experience string         `json:"experience"`
	Education  string         `json:"education"`
	Skills     datatypes.JSON `json:"skills"`
}

// CreateResume 保存一份结构化简历。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Title is required")
		return
	}

	resume := database.Resume{
		UserID:     actor.UserID,
		Title:      req.Title,
		Summary:    req.Summary,
		Experience: req.Experience,
		Education:  req.Education,
		Skills:     req.Skills,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&resume).Error; err != nil {
		Internal(c, "Failed to create resume", err, h.development)
		return
	}

	OK(c, http.StatusCreated, "Resume created successfully", gin.H{
		"resume": resumeBody(resume),
	})
}

// ListResumes 列出用户的全部简历，随投递生成的一次性简历也在其中。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var resumes []database.Resume
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", actor.UserID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		Internal(c, "Failed to list resumes", err, h.development)
		return
	}

	items := make([]gin.H, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeBody(r))
	}

	OK(c, http.StatusOK, "", gin.H{"resumes": items})
}

// UploadResume 上传 PDF 简历文件，入库前先做病毒扫描。
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "Resume file is required")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "application/pdf" {
		BadRequest(c, "Only PDF resumes are accepted")
		return
	}

	if h.clamdAddr != "" {
		clean, err := h.scanFile(file)
		if err != nil {
			h.logger.Error("scan resume failed", slog.Any("error", err))
			Internal(c, "Failed to scan resume", err, h.development)
			return
		}
		if !clean {
			BadRequest(c, "Malicious file detected")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "Failed to read resume", err, h.development)
		return
	}
	defer reader.Close()

	objectKey := fmt.Sprintf("resumes/%d/%s.pdf", actor.UserID, uuid.NewString())
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, reader, file.Size, contentType); err != nil {
		h.logger.Error("upload resume failed", slog.Any("error", err))
		Internal(c, "Failed to upload resume", err, h.development)
		return
	}

	title := strings.TrimSuffix(file.Filename, ".pdf")
	if title == "" {
		title = "Uploaded Resume"
	}

	resume := database.Resume{
		UserID:    actor.UserID,
		Title:     title,
		ObjectKey: objectKey,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&resume).Error; err != nil {
		// 入库失败时回收已上传的对象，避免孤儿文件。
		_ = h.storage.DeleteObject(c.Request.Context(), objectKey)
		Internal(c, "Failed to save resume", err, h.development)
		return
	}

	OK(c, http.StatusCreated, "Resume uploaded successfully", gin.H{
		"resume": resumeBody(resume),
	})
}

// DownloadLink 为上传的简历文件生成限时下载链接。
func (h *ResumeHandler) DownloadLink(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	resume, err := h.ownedResume(c, actor.UserID)
	if err != nil {
		return
	}
	if resume.ObjectKey == "" {
		BadRequest(c, "This resume has no uploaded file")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), resume.ObjectKey, 5*time.Minute)
	if err != nil {
		h.logger.Error("generate resume link failed", slog.Any("error", err))
		Internal(c, "Failed to generate download link", err, h.development)
		return
	}

	OK(c, http.StatusOK, "", gin.H{"url": signedURL})
}

// DeleteResume 删除一份简历及其上传的文件。
// 已被投递引用的简历不可删除。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)
	ctx := c.Request.Context()

	resume, err := h.ownedResume(c, actor.UserID)
	if err != nil {
		return
	}

	var count int64
	if err := h.db.WithContext(ctx).Model(&database.JobApplication{}).
		Where("resume_id = ?", resume.ID).Count(&count).Error; err != nil {
		Internal(c, "Failed to delete resume", err, h.development)
		return
	}
	if count > 0 {
		BadRequest(c, "Resume is attached to an application and cannot be deleted")
		return
	}

	if resume.ObjectKey != "" {
		if err := h.storage.DeleteObject(ctx, resume.ObjectKey); err != nil {
			h.logger.Warn("delete resume object failed",
				slog.String("object_key", resume.ObjectKey),
				slog.Any("error", err),
			)
		}
	}

	if err := h.db.WithContext(ctx).Delete(resume).Error; err != nil {
		Internal(c, "Failed to delete resume", err, h.development)
		return
	}

	OK(c, http.StatusOK, "Resume deleted successfully", nil)
}

func (h *ResumeHandler) scanFile(file *multipart.FileHeader) (bool, error) {
	reader, err := file.Open()
	if err != nil {
		return false, err
	}
	defer reader.Close()

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	if err != nil {
		return false, err
	}

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}

func (h *ResumeHandler) ownedResume(c *gin.Context, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid resume ID")
		return nil, err
	}

	var resume database.Resume
	err = h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", resumeID, userID).
		First(&resume).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "Resume not found")
		return nil, err
	}
	if err != nil {
		Internal(c, "Failed to load resume", err, h.development)
		return nil, err
	}
	return &resume, nil
}

func resumeBody(resume database.Resume) gin.H {
	return gin.H{
		"id":         resume.ID,
		"title":      resume.Title,
		"summary":    resume.Summary,
		"experience": resume.Experience,
		"education":  resume.Education,
		"skills":     resume.Skills,
		"hasFile":    resume.ObjectKey != "",
		"custom":     resume.Custom,
		"createdAt":  resume.CreatedAt,
	}
}
