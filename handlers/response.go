package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chatorder-backend/apperr"
)

// respondError 按错误分类映射 HTTP 状态码
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsCapacity(err):
		status = http.StatusConflict
	case apperr.IsExternal(err):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("❌ 请求处理失败")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
