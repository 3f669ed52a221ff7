package container

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/auth"
	"github.com/aewaew419/internship-sub007/internal/config"
	"github.com/aewaew419/internship-sub007/internal/database"
	"github.com/aewaew419/internship-sub007/internal/integration"
	"github.com/aewaew419/internship-sub007/internal/metrics"
	"github.com/aewaew419/internship-sub007/internal/repository"
	"github.com/aewaew419/internship-sub007/internal/service"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/websocket"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、存储、服务和事件出口
type Container struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *logrus.Logger

	hub          *websocket.Hub
	publisher    *integration.NotificationPublisher
	eventHandler *integration.EventHandler
	validator    *auth.TokenValidator
	collector    *metrics.Collector

	caseStore store.CaseStore

	caseService     service.CaseService
	advisorService  service.AdvisorService
	votingService   service.VotingService
	overrideService service.OverrideService
	queryService    service.QueryService
	statsService    service.StatisticsService

	// 停滞判定窗口,配置热更新时原子替换
	stalenessWindow atomic.Int64
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.New()
	}

	c := &Container{cfg: cfg, logger: logger}
	c.stalenessWindow.Store(int64(cfg.Workflow.StalenessWindow()))

	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, config.IsProduction(cfg), 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化 WebSocket Hub
	c.hub = websocket.NewHub()
	go c.hub.Run()

	// 3. 初始化 NATS 发布器,未配置时为 nil
	publisher, err := integration.NewNotificationPublisher(cfg.Events.NATSURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS publisher: %w", err)
	}
	c.publisher = publisher

	// 4. 初始化事件处理器
	c.eventHandler = integration.NewEventHandler(
		db,
		cfg.Workflow.EventWorkers,
		cfg.Events.WebhookURL,
		publisher,
		c.hub,
		logger,
	)

	// 5. 初始化 Token 验证器,未配置 issuer 时跳过认证（本地开发）
	if cfg.Auth.Issuer != "" {
		c.validator = auth.NewTokenValidator(cfg.Auth.Issuer)
	}

	// 6. 初始化存储与服务
	c.caseStore = store.NewGormCaseStore(db)
	engine := workflow.NewEngine()
	auditLogSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	c.caseService = service.NewCaseService(c.caseStore, auditLogSvc)
	c.advisorService = service.NewAdvisorService(c.caseStore, engine, c.eventHandler, auditLogSvc, cfg.Workflow.CASRetryLimit)
	c.votingService = service.NewVotingService(c.caseStore, engine, c.eventHandler, auditLogSvc, cfg.Workflow.CASRetryLimit)
	c.overrideService = service.NewOverrideService(c.caseStore, engine, c.eventHandler, auditLogSvc, cfg.Workflow.CASRetryLimit)
	c.queryService = service.NewQueryService(db, c.caseStore, c.StalenessWindow)
	c.statsService = service.NewStatisticsService(db)

	// 7. 启动指标收集器
	c.collector = metrics.NewCollector(db, 30*time.Second)
	c.collector.Start()

	return c, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Publisher 获取 NATS 发布器
func (c *Container) Publisher() *integration.NotificationPublisher {
	return c.publisher
}

// EventHandler 获取事件处理器
func (c *Container) EventHandler() *integration.EventHandler {
	return c.eventHandler
}

// Validator 获取 Token 验证器
func (c *Container) Validator() *auth.TokenValidator {
	return c.validator
}

// CaseStore 获取案件存储
func (c *Container) CaseStore() store.CaseStore {
	return c.caseStore
}

// CaseService 获取案件服务
func (c *Container) CaseService() service.CaseService {
	return c.caseService
}

// AdvisorService 获取导师门服务
func (c *Container) AdvisorService() service.AdvisorService {
	return c.advisorService
}

// VotingService 获取投票服务
func (c *Container) VotingService() service.VotingService {
	return c.votingService
}

// OverrideService 获取管理员覆盖服务
func (c *Container) OverrideService() service.OverrideService {
	return c.overrideService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statsService
}

// StalenessWindow 返回当前停滞判定窗口
func (c *Container) StalenessWindow() time.Duration {
	return time.Duration(c.stalenessWindow.Load())
}

// ApplyConfig 应用热更新后的配置
func (c *Container) ApplyConfig(cfg *config.Config) {
	c.stalenessWindow.Store(int64(cfg.Workflow.StalenessWindow()))

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		c.logger.SetLevel(level)
	}
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.eventHandler != nil {
		c.eventHandler.Stop()
	}
	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
