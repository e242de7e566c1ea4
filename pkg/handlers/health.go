package handlers

import (
	"net/http"
	"time"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/utils"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{config: cfg, db: db}
}

// Health 健康检查
// GET /
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := h.db.HealthCheck(); err != nil {
		dbStatus = "unavailable"
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":      "ok",
		"environment": h.config.Environment,
		"database":    dbStatus,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

// ConnectionStats 数据库连接池状态（调试用）
// GET /api/debug/db-stats
func (h *HealthHandler) ConnectionStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, database.GetConnectionStats())
}
