package handler

import (
	"fmt"
	"net/http"
	"time"

	"taskboard-backend/pkg/authz"
	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/handlers"
	"taskboard-backend/pkg/logs"
	customMiddleware "taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// auditSink 进程级审计管道：冷启动时创建一次，所有请求共享
var auditSink = services.NewAuditSink()

// Handler serverless函数入口
// 单体路由模式：所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	logs.Init(logs.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// 获取数据库连接（进程内单例，冷启动之间复用）
	db := database.GetDatabase(database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})

	// 创建Chi路由器
	router := chi.NewRouter()

	// 设置全局中间件
	setupMiddleware(router, cfg)

	// 设置路由
	setupRoutes(router, cfg, db)

	// 将请求传递给Chi路由器处理
	router.ServeHTTP(w, r)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（serverless函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 请求体限制与Content-Type校验
	router.Use(customMiddleware.MaxBodySize(1 << 20)) // 1MB
	router.Use(customMiddleware.ContentTypeJSON)

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	// 组装授权引擎和服务层
	engine := authz.NewEngine(cfg.RootOrgID)
	taskService := services.NewTaskService(db, engine, auditSink)
	orgService := services.NewOrgService(db)

	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, db)
	tasksHandler := handlers.NewTasksHandler(cfg, taskService, auditSink)
	orgsHandler := handlers.NewOrgsHandler(cfg, orgService)
	seedHandler := handlers.NewSeedHandler(cfg, db)
	healthHandler := handlers.NewHealthHandler(cfg, db)

	// 健康检查端点
	router.Get("/", healthHandler.Health)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", healthHandler.ConnectionStats)
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// 种子数据（开发/演示环境）
		if !cfg.IsProduction() {
			r.Post("/seed", seedHandler.Seed)
		}

		// 受保护的路由（需要认证）
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", tasksHandler.List)
				r.Get("/audit-log", tasksHandler.AuditLog)

				// 创建与重排先过角色门禁，细粒度判断在服务层
				r.With(customMiddleware.RequireRoles(models.RoleOwner, models.RoleAdmin)).
					Post("/", tasksHandler.Create)
				r.With(customMiddleware.RequireRoles(models.RoleAdmin)).
					Put("/reorder", tasksHandler.Reorder)

				r.Route("/{id}", func(r chi.Router) {
					r.With(customMiddleware.RequireRoles(models.RoleOwner, models.RoleAdmin)).
						Put("/", tasksHandler.Update)
					r.With(customMiddleware.RequireRoles(models.RoleOwner, models.RoleAdmin)).
						Delete("/", tasksHandler.Delete)
				})
			})

			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", orgsHandler.List)
				r.Get("/{id}/children", orgsHandler.Children)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
