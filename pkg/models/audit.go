package models

import "time"

// 审计动作常量
const (
	AuditActionCreate  = "task.create"
	AuditActionUpdate  = "task.update"
	AuditActionDelete  = "task.delete"
	AuditActionReorder = "task.reorder"
)

// AuditEvent 审计事件（只作为日志副作用，不落库、不可查询）
type AuditEvent struct {
	ID        string    `json:"id"`
	ActorID   int64     `json:"actor_id"`
	ActorRole Role      `json:"actor_role"`
	TaskID    int64     `json:"task_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
