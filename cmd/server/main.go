package main

import (
	"net/http"

	handler "taskboard-backend/api"
	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/logs"
)

// 本地开发入口：复用 serverless 入口的路由，起一个普通HTTP服务
func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		panic("configuration error: " + err.Error())
	}

	logs.Init(logs.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	addr := ":" + cfg.Port
	logs.Logger.WithField("addr", addr).
		WithField("environment", cfg.Environment).
		Info("server starting")

	if err := http.ListenAndServe(addr, http.HandlerFunc(handler.Handler)); err != nil {
		logs.Logger.WithError(err).Fatal("server stopped")
	}
}
