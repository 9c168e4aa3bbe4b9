package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"joblink/internal/workflow"
)

// 所有响应统一为 {success, message?, <payload>} 信封。
// 失败时附带 message；error 字段只在开发模式下携带内部错误详情。

// OK 输出成功信封，payload 的键值并入顶层。
func OK(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// Fail 输出失败信封。
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// Internal 输出 500 信封；开发模式下额外携带内部错误详情。
func Internal(c *gin.Context, message string, err error, development bool) {
	body := gin.H{"success": false, "message": message}
	if development && err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// BadRequest / Unauthorized / Forbidden / NotFound 是常用失败的简写。
func BadRequest(c *gin.Context, message string)   { Fail(c, http.StatusBadRequest, message) }
func Unauthorized(c *gin.Context, message string) { Fail(c, http.StatusUnauthorized, message) }
func Forbidden(c *gin.Context, message string)    { Fail(c, http.StatusForbidden, message) }
func NotFound(c *gin.Context, message string)     { Fail(c, http.StatusNotFound, message) }

// FailWorkflow 把工作流错误映射为信封。分类对应的状态码：
// 校验与冲突 400、越权 403、缺失 404，其余按内部错误处理。
func FailWorkflow(c *gin.Context, err error, fallback string, development bool) {
	var wErr *workflow.Error
	if !errors.As(err, &wErr) {
		Internal(c, fallback, err, development)
		return
	}

	switch wErr.Kind {
	case workflow.KindValidation, workflow.KindConflict:
		BadRequest(c, wErr.Message)
	case workflow.KindForbidden:
		Forbidden(c, wErr.Message)
	case workflow.KindNotFound:
		NotFound(c, wErr.Message)
	default:
		Internal(c, fallback, err, development)
	}
}
