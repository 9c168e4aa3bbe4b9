package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// pageParams 从查询串解析分页参数，非法值回退默认。
func pageParams(c *gin.Context) (page, limit int) {
	page = defaultPage
	limit = defaultLimit

	if raw := c.Query("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// paginationBody 构造响应中的 pagination 块。
func paginationBody(page, limit int, total int64) gin.H {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return gin.H{
		"page":  page,
		"limit": limit,
		"total": total,
		"pages": pages,
	}
}
