package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/database"
	"github.com/aewaew419/internship-sub007/internal/integration"
	"github.com/aewaew419/internship-sub007/internal/websocket"
)

// HealthController 健康检查控制器
type HealthController struct {
	db        *gorm.DB
	publisher *integration.NotificationPublisher
	hub       *websocket.Hub
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, publisher *integration.NotificationPublisher, hub *websocket.Hub) *HealthController {
	return &HealthController{
		db:        db,
		publisher: publisher,
		hub:       hub,
	}
}

// Check 健康检查
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	// 检查数据库连接
	if c.db != nil {
		if database.CheckHealth(c.db) {
			checks["database"] = "healthy"
		} else {
			status = "unhealthy"
			checks["database"] = "unhealthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	// 检查 NATS 连接
	// 通知通道降级不影响核心写路径,只降级整体状态到 degraded
	if c.publisher != nil {
		if c.publisher.Connected() {
			checks["nats"] = "healthy"
		} else {
			if status == "healthy" {
				status = "degraded"
			}
			checks["nats"] = "disconnected"
		}
	} else {
		checks["nats"] = "not configured"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	result := gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	}
	if c.hub != nil {
		result["websocket_clients"] = c.hub.GetClientCount()
	}

	ctx.JSON(httpStatus, result)
}
