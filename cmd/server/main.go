package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/logging"
)

// @title RF Gateway API
// @version 1.0
// @description Oria WA150KM 温度计射频网关：调试解码、设备与读数查询
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	configPath := pflag.StringP("config", "c", "", "config file (default: $RFGW_CONFIG or configs/example.yaml)")
	pflag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动并阻塞至收到退出信号
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		logger.Error("gateway exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
