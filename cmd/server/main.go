package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediaklub/backend/config"
	applogger "mediaklub/backend/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "mediaklub",
	Short:         "媒体社拍摄组员分配服务",
	SilenceUsage:  true,
	SilenceErrors: true,
	// 不带子命令时直接启动服务
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap 加载配置并初始化日志，所有子命令共用
func bootstrap() (*config.Config, *zap.Logger, zap.AtomicLevel, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, atom, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, atom, nil
}
