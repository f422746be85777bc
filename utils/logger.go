package utils

import (
	"os"

	"github.com/sirupsen/logrus"

	"chatorder-backend/config"
)

// SetupLogger 按配置设置全局 logrus
func SetupLogger(cfg config.LogConfig) {
	logrus.SetOutput(os.Stdout)
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("⚠️ 日志级别无效，使用 info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
