package services

import (
	"strings"
	"time"

	"taskboard-backend/pkg/authz"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/models"

	"github.com/pkg/errors"
)

// TaskService 把授权引擎的决策绑定到存储操作上。
// 所有任务读写都必须经过这里：handler 不直接接触 DatabaseInterface。
type TaskService struct {
	db    database.DatabaseInterface
	authz *authz.Engine
	audit Auditor
}

// NewTaskService 创建任务服务
func NewTaskService(db database.DatabaseInterface, engine *authz.Engine, audit Auditor) *TaskService {
	return &TaskService{db: db, authz: engine, audit: audit}
}

// List 返回调用方可见范围内的任务，按 priority 升序
func (s *TaskService) List(p models.Principal) ([]models.TaskResponse, error) {
	tasks, err := s.db.ListTasks(s.authz.Scope(p))
	if err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}

	// 空结果也返回 []，不返回 null
	result := make([]models.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, tasks[i].Response())
	}
	return result, nil
}

// Create 创建任务。组织归属强制取创建者所在组织（忽略请求里的 organization_id），
// priority 由存储层计算为组织内最大值 +1。
func (s *TaskService) Create(p models.Principal, req models.CreateTaskRequest) (*models.TaskResponse, error) {
	if !s.authz.CanCreate(p) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.Wrap(ErrValidation, "title is required")
	}

	// 解析创建者，确认其组织归属（认证过的调用方一般不会失败，防御性检查）
	creator, err := s.db.GetUserByID(p.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, "creator")
		}
		return nil, errors.Wrap(err, "resolve creator")
	}

	task := &models.Task{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		CreatedByID:    creator.ID,
		CreatedByEmail: creator.Email,
		OrganizationID: creator.OrganizationID,
	}
	if err := s.db.CreateTask(task); err != nil {
		return nil, errors.Wrap(err, "create task")
	}

	s.emit(p, task.ID, models.AuditActionCreate)

	resp := task.Response()
	return &resp, nil
}

// Update 按白名单补丁更新任务。
// 先解析存在性（不存在报 ErrNotFound），再判断权限（无权报 ErrPermissionDenied），
// 顺序固定，权限失败不会被降级成"不存在"。
func (s *TaskService) Update(p models.Principal, taskID int64, patch models.TaskPatch) (*models.TaskResponse, error) {
	task, err := s.db.GetTaskByID(taskID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, "task")
		}
		return nil, errors.Wrap(err, "fetch task")
	}

	if !s.authz.CanMutate(p, task) {
		return nil, ErrPermissionDenied
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, errors.Wrap(ErrValidation, "title cannot be empty")
		}
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}

	if err := s.db.UpdateTask(task); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, "task")
		}
		return nil, errors.Wrap(err, "update task")
	}

	s.emit(p, task.ID, models.AuditActionUpdate)

	resp := task.Response()
	return &resp, nil
}

// Delete 永久删除任务。存在性与权限的判断顺序同 Update。
func (s *TaskService) Delete(p models.Principal, taskID int64) error {
	task, err := s.db.GetTaskByID(taskID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errors.Wrap(ErrNotFound, "task")
		}
		return errors.Wrap(err, "fetch task")
	}

	if !s.authz.CanMutate(p, task) {
		return ErrPermissionDenied
	}

	if err := s.db.DeleteTask(task.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errors.Wrap(ErrNotFound, "task")
		}
		return errors.Wrap(err, "delete task")
	}

	s.emit(p, task.ID, models.AuditActionDelete)
	return nil
}

// Reorder 整批重排：每个任务的新 priority 是其 id 在序列中的下标。
// 只有根组织 Admin 可以调用；权限不足时零写入。
func (s *TaskService) Reorder(p models.Principal, orderedIDs []int64) error {
	if !s.authz.CanReorder(p) {
		return ErrPermissionDenied
	}
	if len(orderedIDs) == 0 {
		return errors.Wrap(ErrValidation, "task id list is empty")
	}

	seen := make(map[int64]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if id <= 0 {
			return errors.Wrap(ErrValidation, "task ids must be positive")
		}
		if _, dup := seen[id]; dup {
			return errors.Wrap(ErrValidation, "duplicate task id in sequence")
		}
		seen[id] = struct{}{}
	}

	start := time.Now()
	if err := s.db.ReorderTasks(orderedIDs); err != nil {
		return errors.Wrap(err, "reorder tasks")
	}
	logs.Logger.WithField("count", len(orderedIDs)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("tasks reordered")

	// 每个涉及的任务各发一条审计事件
	for _, id := range orderedIDs {
		s.emit(p, id, models.AuditActionReorder)
	}
	return nil
}

// emit 发送审计事件。只在业务操作成功后调用。
func (s *TaskService) emit(p models.Principal, taskID int64, action string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(models.AuditEvent{
		ActorID:   p.UserID,
		ActorRole: p.Role,
		TaskID:    taskID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	})
}
