package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// DomainError 将工作流错误映射为 HTTP 响应
// 瞬态错误返回 503,客户端可安全重试
func DomainError(c *gin.Context, err error, operation string) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		Error(c, http.StatusNotFound, "case not found", err.Error())
	case errors.Is(err, workflow.ErrAlreadyExists):
		Error(c, http.StatusConflict, "case already exists", err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition):
		Error(c, http.StatusConflict, "invalid status transition", err.Error())
	case errors.Is(err, workflow.ErrDuplicateVote):
		Error(c, http.StatusConflict, "duplicate vote", err.Error())
	case errors.Is(err, workflow.ErrNotAuthorized):
		Error(c, http.StatusForbidden, "not authorized", err.Error())
	case errors.Is(err, workflow.ErrTransient):
		Error(c, http.StatusServiceUnavailable, "temporarily unavailable, retry later", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "failed to "+operation, err.Error())
	}
}
