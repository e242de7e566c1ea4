package middleware

import (
	"net/http"
	"time"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/logs"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Logger 请求日志中间件：每个请求一条结构化日志。
// 格式（text/json）由全局日志器决定，见 logs.Init。
func Logger(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// 包装ResponseWriter以捕获状态码和写入字节数
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			// 获取调用方信息（如果已认证）
			actor := "anonymous"
			if principal, ok := GetPrincipalFromContext(r.Context()); ok {
				actor = string(principal.Role)
			}

			entry := logs.Logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": duration.Milliseconds(),
				"actor":       actor,
				"ip":          getClientIP(r),
				"request_id":  middleware.GetReqID(r.Context()),
			})

			switch {
			case ww.Status() >= 500:
				entry.Error("request failed")
			case ww.Status() >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request completed")
			}
		})
	}
}

// getClientIP 获取客户端IP地址
func getClientIP(r *http.Request) string {
	// 检查X-Forwarded-For头（代理/负载均衡器）
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	// 检查X-Real-IP头
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
