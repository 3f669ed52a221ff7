package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault 测试默认配置值
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(0), cfg.Server.RateLimitRPS)
	assert.False(t, cfg.Server.ForceHTTPS)
	assert.Equal(t, "internship", cfg.Database.DBName)
	assert.Equal(t, 7, cfg.Workflow.StalenessDays)
	assert.Equal(t, 5, cfg.Workflow.CASRetryLimit)
	assert.Equal(t, 4, cfg.Workflow.EventWorkers)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

// TestStalenessWindow 测试停滞窗口换算
func TestStalenessWindow(t *testing.T) {
	wc := WorkflowConfig{StalenessDays: 3}
	assert.Equal(t, 3*24*time.Hour, wc.StalenessWindow())

	// 非法值回落到默认 7 天
	wc = WorkflowConfig{StalenessDays: 0}
	assert.Equal(t, 7*24*time.Hour, wc.StalenessWindow())
	wc = WorkflowConfig{StalenessDays: -1}
	assert.Equal(t, 7*24*time.Hour, wc.StalenessWindow())
}

// TestLoad_FromFile 测试从配置文件加载
func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: production
server:
  port: 9090
workflow:
  staleness_days: 14
  event_workers: 8
events:
  nats_url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Workflow.StalenessDays)
	assert.Equal(t, 8, cfg.Workflow.EventWorkers)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
	// 未覆盖的键保持默认
	assert.Equal(t, 5, cfg.Workflow.CASRetryLimit)
}

// TestLoad_MissingFile 测试配置文件不存在
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

// TestIsProduction 测试环境判断
func TestIsProduction(t *testing.T) {
	assert.False(t, IsProduction(nil))
	assert.False(t, IsProduction(&Config{Env: "development"}))
	assert.True(t, IsProduction(&Config{Env: "production"}))
}
