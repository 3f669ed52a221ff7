/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aewaew419/internship-sub007/internal/api"
	"github.com/aewaew419/internship-sub007/internal/config"
	"github.com/aewaew419/internship-sub007/internal/container"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the internship approval API server.
The server will listen on the configured host and port,
and provide REST API interfaces for the approval workflow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化日志
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 4. 初始化追踪
		if cfg.Tracing.Enabled {
			if err := api.InitTracing("internship-approval", cfg.Tracing.JaegerEndpoint); err != nil {
				logger.WithError(err).Warn("failed to initialize tracing, continuing without it")
				cfg.Tracing.Enabled = false
			}
		}

		// 5. 监听配置文件变更,热更新停滞窗口和日志级别
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath)
			watcher.OnConfigChange(func(newCfg *config.Config) {
				logger.Info("config reloaded")
				ctr.ApplyConfig(newCfg)
			})
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("failed to watch config file")
			} else {
				defer watcher.Stop()
			}
		}

		// 6. 初始化控制器并设置路由
		caseController := api.NewCaseController(
			ctr.CaseService(),
			ctr.AdvisorService(),
			ctr.VotingService(),
			ctr.OverrideService(),
		)
		queryController := api.NewQueryController(ctr.QueryService(), ctr.StatisticsService())

		router := api.SetupRoutes(&api.RouterOptions{
			Hub:             ctr.Hub(),
			Validator:       ctr.Validator(),
			DB:              ctr.DB(),
			Publisher:       ctr.Publisher(),
			CaseController:  caseController,
			QueryController: queryController,
			AllowedOrigins:  cfg.CORS.AllowedOrigins,
			RateLimitRPS:    cfg.Server.RateLimitRPS,
			RateLimitBurst:  cfg.Server.RateLimitBurst,
			TracingEnabled:  cfg.Tracing.Enabled,
			ForceHTTPS:      cfg.Server.ForceHTTPS,
		})

		// 7. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		// 启动服务器（在 goroutine 中）
		go func() {
			logger.Infof("Server starting on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("Failed to start server: %v", err)
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatalf("Server forced to shutdown: %v", err)
		}

		if cfg.Tracing.Enabled {
			_ = api.ShutdownTracing(ctx)
		}

		logger.Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 添加配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.internship-approval)")
}
