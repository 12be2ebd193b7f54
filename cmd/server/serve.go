package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mediaklub/backend/config"
	"mediaklub/backend/internal/api/handler"
	"mediaklub/backend/internal/api/router"
	"mediaklub/backend/internal/repository"
	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/database"
	"mediaklub/backend/pkg/jwt"
	applogger "mediaklub/backend/pkg/logger"
	"mediaklub/backend/pkg/redis"
	"mediaklub/backend/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. 配置与日志
	cfg, logger, atom, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("mode", cfg.Server.Mode),
	)

	// 配置文件变更时热更新日志级别
	if err := config.Watch(configPath, func(c *config.Config) {
		if err := applogger.SetLevel(atom, c.Log.Level); err != nil {
			logger.Warn("日志级别热更新失败", zap.Error(err))
			return
		}
		logger.Info("日志级别已更新", zap.String("level", c.Log.Level))
	}); err != nil {
		logger.Warn("配置监听启动失败", zap.Error(err))
	}

	// 2. 链路追踪
	shutdownTracing, err := tracing.Setup(&cfg.Tracing, os.Stdout)
	if err != nil {
		return fmt.Errorf("初始化链路追踪失败: %w", err)
	}

	// 3. 数据库 + 迁移
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 4. Redis（可选：连接失败时降级运行）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单不可用，限流退化为进程内实现", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// 5. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, logger)
	h := handler.NewHandler(svc, cfg.Server.CORS.AllowOrigins, logger)
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// WriteTimeout 不设置：WebSocket 长连接由 handler 自行维护超时
	}

	// 6. 运行：HTTP 服务 + 编辑会话清理 + 事件广播，收到信号后统一退出
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		svc.Crew.Run(gctx)
		return nil
	})
	g.Go(func() error {
		svc.Events.RunRelay(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("开始优雅关闭...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("服务器关闭异常", zap.Error(err))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("链路追踪关闭异常", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("服务器已关闭")
	return nil
}
