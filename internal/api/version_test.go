package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newVersionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(VersionMiddleware())
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": GetAPIVersion(c)})
	}
	router.GET("/api/v1/cases", handler)
	router.GET("/api/v2/cases", handler)
	router.GET("/health", handler)
	return router
}

func TestVersionMiddleware_PathExtraction(t *testing.T) {
	router := newVersionRouter()

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/cases", `"version":"v1"`},
		{"/api/v2/cases", `"version":"v2"`},
		{"/health", `"version":"v1"`}, // 无版本路径走默认版本
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestVersionMiddleware_HeaderOverridesPath(t *testing.T) {
	router := newVersionRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/cases", nil)
	req.Header.Set("API-Version", "v2")
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), `"version":"v2"`)
}

func TestVersionMiddleware_DeprecationHeaders(t *testing.T) {
	RegisterDeprecatedVersion(DeprecatedVersionInfo{
		Version:         "v0",
		DeprecationDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		SunsetDate:      time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		MigrationPath:   "/api/v1",
	})

	router := newVersionRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("API-Version", "v0")
	router.ServeHTTP(w, req)

	assert.Equal(t, "true", w.Header().Get("X-API-Deprecated"))
	assert.Equal(t, "2026-06-01", w.Header().Get("X-API-Deprecation-Date"))
	assert.Equal(t, "2026-12-01", w.Header().Get("X-API-Sunset-Date"))
	assert.Equal(t, "/api/v1", w.Header().Get("X-API-Migration-Path"))
}

func TestVersionMiddleware_CurrentVersionClean(t *testing.T) {
	router := newVersionRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/cases", nil))

	assert.Empty(t, w.Header().Get("X-API-Deprecated"))
}

func TestGetAPIVersion_Default(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	// 中间件未运行时返回默认版本
	assert.Equal(t, "v1", GetAPIVersion(c))
}
