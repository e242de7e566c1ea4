package handlers

import (
	"net/http"
	"strconv"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// TasksHandler 任务处理器：只做请求解析和错误映射，业务规则都在服务层
type TasksHandler struct {
	config  *config.Config
	service *services.TaskService
	audit   *services.AuditSink
}

// NewTasksHandler 创建任务处理器
func NewTasksHandler(cfg *config.Config, service *services.TaskService, audit *services.AuditSink) *TasksHandler {
	return &TasksHandler{config: cfg, service: service, audit: audit}
}

// writeServiceError 把服务层的哨兵错误映射为HTTP状态码
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.WriteNotFoundResponse(w, "Task not found")
	case errors.Is(err, services.ErrPermissionDenied):
		utils.WriteForbiddenResponse(w, "Permission denied")
	case errors.Is(err, services.ErrValidation):
		utils.WriteValidationErrorResponse(w, "Invalid request", err.Error())
	default:
		logs.Logger.WithError(err).Error("task operation failed")
		utils.WriteInternalServerErrorResponse(w, "Internal server error")
	}
}

// List 列出调用方可见的任务
// GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.RequirePrincipal(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	tasks, err := h.service.List(principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, tasks)
}

// Create 创建任务
// POST /api/tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.RequirePrincipal(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req models.CreateTaskRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	task, err := h.service.Create(principal, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteCreatedResponse(w, task)
}

// Update 按补丁更新任务
// PUT /api/tasks/{id}
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.RequirePrincipal(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	taskID, err := taskIDParam(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, "Invalid task id")
		return
	}

	var patch models.TaskPatch
	if err := utils.ParseJSONBody(r, &patch); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	task, err := h.service.Update(principal, taskID, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, task)
}

// Delete 删除任务
// DELETE /api/tasks/{id}
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.RequirePrincipal(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	taskID, err := taskIDParam(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, "Invalid task id")
		return
	}

	if err := h.service.Delete(principal, taskID); err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteNoContentResponse(w)
}

// ReorderRequest 重排请求体：新顺序下的任务id序列
type ReorderRequest struct {
	TaskIDs []int64 `json:"task_ids"`
}

// Reorder 整批重排任务优先级
// PUT /api/tasks/reorder
func (h *TasksHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.RequirePrincipal(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req ReorderRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if err := h.service.Reorder(principal, req.TaskIDs); err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"reordered": len(req.TaskIDs),
	})
}

// AuditLog 审计通道状态
// 审计事件只写结构化日志，不落库，这个接口用于说明通道去向和健康状况。
// GET /api/tasks/audit-log
func (h *TasksHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequirePrincipal(r.Context()); err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	info := map[string]interface{}{
		"sink":      "structured-log",
		"queryable": false,
		"actions": []string{
			models.AuditActionCreate,
			models.AuditActionUpdate,
			models.AuditActionDelete,
			models.AuditActionReorder,
		},
	}
	if h.audit != nil {
		info["dropped_events"] = h.audit.Dropped()
	}

	utils.WriteSuccessResponse(w, info)
}

// taskIDParam 解析路径中的任务id
func taskIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid task id: %q", raw)
	}
	return id, nil
}
