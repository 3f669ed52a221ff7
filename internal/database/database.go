package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/config"
	"github.com/aewaew419/internship-sub007/internal/model"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,
		MaxOpenConns:    200,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟
	}
}

// resolvePoolConfig 合并配置与默认值
func resolvePoolConfig(cfg config.DatabaseConfig, defaults *PoolConfig) *PoolConfig {
	if cfg.MaxIdleConns == 0 && cfg.MaxOpenConns == 0 {
		return defaults
	}

	poolConfig := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if poolConfig.MaxIdleConns == 0 {
		poolConfig.MaxIdleConns = defaults.MaxIdleConns
	}
	if poolConfig.MaxOpenConns == 0 {
		poolConfig.MaxOpenConns = defaults.MaxOpenConns
	}
	if poolConfig.ConnMaxLifetime == 0 {
		poolConfig.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if poolConfig.ConnMaxIdleTime == 0 {
		poolConfig.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	return poolConfig
}

// connect 连接数据库并应用连接池配置
func connect(cfg config.DatabaseConfig, defaults *PoolConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	poolConfig := resolvePoolConfig(cfg, defaults)
	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, GetPoolConfig())
}

// ConnectProduction 连接数据库（生产环境配置）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, GetProductionPoolConfig())
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb，需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.ApprovalCaseModel{},
			&model.StatusHistoryModel{},
			&model.EventModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	// 创建 approval_cases 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_cases (
			enrollment_id VARCHAR(64) PRIMARY KEY,
			student_id VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			advisor_id VARCHAR(64),
			final_outcome VARCHAR(16),
			committee_size INTEGER NOT NULL DEFAULT 0,
			vote_count INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_cases table: %w", err)
	}

	// 创建 status_history 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS status_history (
			id VARCHAR(64) PRIMARY KEY,
			enrollment_id VARCHAR(64) NOT NULL,
			from_status VARCHAR(32),
			to_status VARCHAR(32) NOT NULL,
			reason TEXT,
			actor VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create status_history table: %w", err)
	}

	// 创建 events 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id VARCHAR(64) PRIMARY KEY,
			enrollment_id VARCHAR(64) NOT NULL,
			type VARCHAR(64) NOT NULL,
			data TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	// 创建 audit_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// approval_cases 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_status ON approval_cases(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_cases_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_student_id ON approval_cases(student_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_cases_student_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_advisor_id ON approval_cases(advisor_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_cases_advisor_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_status_updated ON approval_cases(status, updated_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_cases_status_updated: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_created_at ON approval_cases(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_cases_created_at: %w", err)
	}

	// status_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_enrollment_id ON status_history(enrollment_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_enrollment_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_created_at ON status_history(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_created_at: %w", err)
	}

	// events 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_enrollment_id ON events(enrollment_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_enrollment_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_created_at: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_data_gin ON approval_cases USING GIN (data)").Error; err != nil {
			return fmt.Errorf("failed to create idx_cases_data_gin: %w", err)
		}
	}

	return nil
}

// ConnectWithRetry 带重试的数据库连接
// production 为 true 时使用生产环境连接池默认值
func ConnectWithRetry(cfg config.DatabaseConfig, production bool, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	connectFn := Connect
	if production {
		connectFn = ConnectProduction
	}

	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = connectFn(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}
