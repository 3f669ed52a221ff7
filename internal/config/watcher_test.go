package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWatcherConfig 写入监听测试用的配置文件
func writeWatcherConfig(t *testing.T, path string, stalenessDays int, logLevel string) {
	t.Helper()
	content := `
server:
  port: 8080
workflow:
  staleness_days: ` + strconv.Itoa(stalenessDays) + `
log:
  level: "` + logLevel + `"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// TestConfigWatcher_HotReload 测试配置文件变更触发回调并携带新值
func TestConfigWatcher_HotReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, configPath, 7, "info")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, cfg.Workflow.StalenessWindow())

	watcher := NewConfigWatcher(cfg, configPath)
	var mu sync.Mutex
	var reloaded *Config
	watcher.OnConfigChange(func(newCfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = newCfg
	})

	require.NoError(t, watcher.Start())
	defer watcher.Stop()
	time.Sleep(100 * time.Millisecond)

	writeWatcherConfig(t, configPath, 14, "warn")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloaded != nil
	}, 3*time.Second, 50*time.Millisecond, "config change callback should fire")

	mu.Lock()
	newCfg := reloaded
	mu.Unlock()
	assert.Equal(t, 14*24*time.Hour, newCfg.Workflow.StalenessWindow())
	assert.Equal(t, "warn", newCfg.Log.Level)
	assert.Equal(t, newCfg, watcher.GetConfig())
}

// TestConfigWatcher_MultipleCallbacks 测试多个回调都被调用
func TestConfigWatcher_MultipleCallbacks(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, configPath, 7, "info")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	watcher := NewConfigWatcher(cfg, configPath)
	var mu sync.Mutex
	called := make(map[int]bool)
	for i := 0; i < 2; i++ {
		i := i
		watcher.OnConfigChange(func(*Config) {
			mu.Lock()
			defer mu.Unlock()
			called[i] = true
		})
	}

	require.NoError(t, watcher.Start())
	defer watcher.Stop()
	time.Sleep(100 * time.Millisecond)

	writeWatcherConfig(t, configPath, 3, "info")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return called[0] && called[1]
	}, 3*time.Second, 50*time.Millisecond, "all callbacks should fire")
}

// TestConfigWatcher_Stop 测试停止后不再触发回调
func TestConfigWatcher_Stop(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, configPath, 7, "info")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	watcher := NewConfigWatcher(cfg, configPath)
	var mu sync.Mutex
	callbackCalled := false
	watcher.OnConfigChange(func(*Config) {
		mu.Lock()
		defer mu.Unlock()
		callbackCalled = true
	})

	require.NoError(t, watcher.Start())
	watcher.Stop()
	time.Sleep(100 * time.Millisecond)

	writeWatcherConfig(t, configPath, 14, "info")
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, callbackCalled, "stopped watcher should not fire callbacks")
}
