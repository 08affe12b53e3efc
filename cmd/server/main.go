package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/mavazi-pos/internal/app"
	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiCyan  = "\033[36m"
	ansiDim   = "\033[2m"
)

func main() {
	modeFlag := flag.String("mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()
	mode, err := app.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	printBanner(mode, cfg)

	warnings, err := app.Preflight(cfg)
	for _, warning := range warnings {
		stdLog.Printf("警告: %s", warning)
	}
	if err != nil {
		stdLog.Fatalf("启动检查未通过: %v", err)
	}
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.InitDatabase(cfg); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if mode != app.ModeWorker {
		if created, err := app.EnsureDefaultAdmin(cfg); err != nil {
			stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
		} else if !created {
			stdLog.Printf("未设置 MAVAZI_DEFAULT_ADMIN_PASSWORD，跳过默认管理员初始化")
		}
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printBanner(mode string, cfg *config.Config) {
	fmt.Println(ansiCyan + ansiBold + "Mavazi POS" + ansiReset + ansiDim + " · inventory core" + ansiReset)
	fmt.Printf("  mode=%s  listen=%s:%s  db=%s  queue=%t\n",
		mode, cfg.Server.Host, cfg.Server.Port, cfg.Database.Driver, cfg.Queue.Enabled)
}
