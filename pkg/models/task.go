package models

import "time"

// Task represents a task owned by its creator and the creator's organization.
// Both references are fixed at creation time and never patched afterwards.
type Task struct {
	ID             int64     `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description,omitempty" db:"description"`
	Priority       int       `json:"priority" db:"priority"`
	Completed      bool      `json:"completed" db:"completed"`
	CreatedByID    int64     `json:"created_by_id" db:"created_by"`
	CreatedByEmail string    `json:"created_by_email,omitempty" db:"-"` // joined from users, not a column of tasks
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CreateTaskRequest 创建任务的请求体
// organization_id 字段即使由客户端提供也会被忽略：任务永远归属创建者所在组织。
type CreateTaskRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	OrganizationID int64  `json:"organization_id,omitempty"`
}

// TaskPatch 更新任务的白名单补丁：只有这四个字段可以被客户端修改。
// nil 表示"不改动"。创建者与组织归属不在白名单内，无法被补丁覆盖。
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
}

// TaskCreator is the projection of the creating user exposed in responses.
type TaskCreator struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// TaskResponse is the shape returned to the dashboard. Internal relations
// never leak beyond these fields.
type TaskResponse struct {
	ID             int64       `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Completed      bool        `json:"completed"`
	OrganizationID int64       `json:"organization_id"`
	CreatedBy      TaskCreator `json:"created_by"`
}

// Response 将存储层的任务投影为响应结构
func (t *Task) Response() TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Completed:      t.Completed,
		OrganizationID: t.OrganizationID,
		CreatedBy: TaskCreator{
			ID:    t.CreatedByID,
			Email: t.CreatedByEmail,
		},
	}
}
