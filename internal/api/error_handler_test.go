package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrorHandlerMiddleware_APIError 测试 APIError 按其状态码渲染
func TestErrorHandlerMiddleware_APIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware())
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(WrapError(errors.New("quota exceeded"), http.StatusTooManyRequests, "too many requests"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many requests")
	assert.Contains(t, w.Body.String(), "quota exceeded")
}

// TestErrorHandlerMiddleware_UnknownError 测试未分类错误归为 500
func TestErrorHandlerMiddleware_UnknownError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware())
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("something broke"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestWrapError 测试错误包装保留原始错误详情
func TestWrapError(t *testing.T) {
	wrapped := WrapError(errors.New("db timeout"), http.StatusServiceUnavailable, "storage unavailable")
	require.NotNil(t, wrapped)
	assert.Equal(t, http.StatusServiceUnavailable, wrapped.Code)
	assert.Equal(t, "storage unavailable", wrapped.Error())
	assert.Equal(t, "db timeout", wrapped.Detail)
}
