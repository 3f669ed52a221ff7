package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/auth"
	"github.com/aewaew419/internship-sub007/internal/integration"
	"github.com/aewaew419/internship-sub007/internal/websocket"
)

// RouterOptions 路由配置
type RouterOptions struct {
	Hub             *websocket.Hub
	Validator       *auth.TokenValidator
	DB              *gorm.DB
	Publisher       *integration.NotificationPublisher
	CaseController  *CaseController
	QueryController *QueryController
	AllowedOrigins  []string
	RateLimitRPS    float64
	RateLimitBurst  int
	TracingEnabled  bool
	ForceHTTPS      bool
}

// SetupRoutes 配置路由
func SetupRoutes(opts *RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(HTTPSRedirectMiddlewareWithConfig(opts.ForceHTTPS))
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())

	// v0 为未分组路由的原型接口,已于 2026-06-01 废弃,2026-12-01 下线
	RegisterDeprecatedVersion(DeprecatedVersionInfo{
		Version:         "v0",
		DeprecationDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		SunsetDate:      time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		MigrationPath:   "/api/v1",
	})
	router.Use(VersionMiddleware())

	// SLA 监控,同一操作连续违反 10 次触发告警日志
	slaAlerts := NewSLAAlertManager()
	for _, op := range []string{"case_creation", "decision", "case_query"} {
		slaAlerts.SetAlertThreshold(op, 10)
	}
	slaAlerts.OnAlert(func(operation string, violations []SLAViolation) {
		logrus.WithFields(logrus.Fields{
			"operation":  operation,
			"violations": len(violations),
		}).Warn("SLA violation threshold reached")
	})
	router.Use(SLAMonitorMiddlewareWithAlert(nil, slaAlerts))
	if len(opts.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(opts.AllowedOrigins))
	}
	if opts.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	if opts.TracingEnabled {
		router.Use(TracingMiddleware())
	}
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(opts.DB, opts.Publisher, opts.Hub)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	if opts.Hub != nil && opts.Validator != nil {
		router.GET("/ws/cases", websocket.WebSocketHandler(opts.Hub, opts.Validator))
	}

	// 认证中间件,未配置 validator 时跳过（本地开发与测试）
	authRequired := func(c *gin.Context) { c.Next() }
	roleRequired := func(roles ...string) gin.HandlerFunc {
		if opts.Validator == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return auth.RequireRoles(roles...)
	}
	if opts.Validator != nil {
		authRequired = auth.AuthMiddleware(opts.Validator)
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	v1.Use(gin.HandlerFunc(authRequired))
	{
		cases := v1.Group("/cases")
		{
			// 查询
			cases.GET("", opts.QueryController.ListCases)
			cases.GET("/attention-queue", opts.QueryController.ListAttentionQueue)
			cases.GET("/statistics", opts.QueryController.GetStatistics)
			cases.GET("/:id", opts.CaseController.Get)
			cases.GET("/:id/status", opts.QueryController.GetStatus)
			cases.GET("/:id/history", opts.QueryController.GetHistory)

			// 写操作
			cases.POST("", roleRequired(auth.RoleAdmin), opts.CaseController.Create)
			cases.POST("/:id/advisor-decision", roleRequired(auth.RoleAdvisor, auth.RoleAdmin), opts.CaseController.AdvisorDecide)
			cases.POST("/:id/votes", roleRequired(auth.RoleCommittee, auth.RoleAdmin), opts.CaseController.CastVote)
			cases.POST("/:id/outcome", roleRequired(auth.RoleAdvisor, auth.RoleAdmin), opts.CaseController.SetOutcome)

			// 管理员覆盖
			cases.POST("/:id/force-status", roleRequired(auth.RoleAdmin), opts.CaseController.ForceStatus)
			cases.POST("/:id/cancel", roleRequired(auth.RoleAdmin), opts.CaseController.Cancel)
		}
	}

	return router
}
