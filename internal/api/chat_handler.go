package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"joblink/internal/api/middleware"
	"joblink/internal/workflow"
)

// ChatHandler 暴露沟通区的列表、历史与发送接口。
type ChatHandler struct {
	workflow    *workflow.Service
	logger      *slog.Logger
	development bool
}

// NewChatHandler 构造聊天处理器。
func NewChatHandler(wf *workflow.Service, logger *slog.Logger, development bool) *ChatHandler {
	return &ChatHandler{workflow: wf, logger: logger, development: development}
}

// ListAreas 列出当前用户可见的沟通区。
func (h *ChatHandler) ListAreas(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	areas, err := h.workflow.ListChatAreas(c.Request.Context(), actor.UserID, actor.Role)
	if err != nil {
		FailWorkflow(c, err, "Failed to fetch chat areas", h.development)
		return
	}

	OK(c, http.StatusOK, "", gin.H{"chatAreas": areas})
}

// History 返回沟通区的全部消息，按时间正序。
func (h *ChatHandler) History(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	chatAreaID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid chat area ID")
		return
	}

	messages, wErr := h.workflow.ChatHistory(c.Request.Context(), actor.UserID, uint(chatAreaID))
	if wErr != nil {
		FailWorkflow(c, wErr, "Failed to fetch chat history", h.development)
		return
	}

	OK(c, http.StatusOK, "", gin.H{"messages": messages})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage 在沟通区内发送一条消息。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	chatAreaID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "Invalid chat area ID")
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "message content is required")
		return
	}

	message, wErr := h.workflow.SendChatMessage(c.Request.Context(), actor.UserID, uint(chatAreaID), req.Content)
	if wErr != nil {
		FailWorkflow(c, wErr, "Failed to send message", h.development)
		return
	}

	OK(c, http.StatusCreated, "Message sent", gin.H{
		"chatMessage": gin.H{
			"id":      message.ID,
			"content": message.Content,
			"sentAt":  message.CreatedAt,
		},
	})
}
