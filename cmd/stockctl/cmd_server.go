package main

import (
	"os"
	"syscall"

	"github.com/mavazi-pos/internal/app"
	"github.com/mavazi-pos/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveMode string

// stockctl serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 API 与任务消费者",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootDB()
		if err != nil {
			return err
		}
		if _, err := app.EnsureDefaultAdmin(cfg); err != nil {
			logger.Warnw("stockctl_default_admin_failed", "error", err)
		}
		if cfg.Server.Mode == "release" {
			gin.SetMode(gin.ReleaseMode)
		}
		return app.Run(app.Options{
			Config:  cfg,
			Logger:  logger.S(),
			Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
			Mode:    serveMode,
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveMode, "mode", app.ModeAll, "启动模式: all, api, worker")
}
