package database

import (
	"errors"

	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/models"
)

// ErrNotFound 统一的"记录不存在"错误：所有实现都必须用它标记未命中，
// 上层用 errors.Is 判断，以便把"不存在"与"无权限"区分开。
var ErrNotFound = errors.New("record not found")

// TaskFilter 任务列表过滤条件。nil 字段表示不限制。
// 授权层根据 Principal 生成过滤条件，存储层只负责执行。
type TaskFilter struct {
	OrganizationID *int64
	CreatedBy      *int64
}

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	CountUsers() (int, error)

	// 组织管理
	CreateOrganization(org *models.Organization) error
	GetOrganization(id int64) (*models.Organization, error)
	ListOrganizations() ([]models.Organization, error)
	// ListChildOrganizations 返回 parentID 的直接下级组织
	ListChildOrganizations(parentID int64) ([]models.Organization, error)

	// 任务管理
	// CreateTask 持久化任务并在同一操作内计算组织内的下一个 priority
	//（组织内现有最大值 +1，空组织为 1）
	CreateTask(task *models.Task) error
	// GetTaskByID 返回任务及创建者邮箱（显式 JOIN，不做关系懒加载）
	GetTaskByID(id int64) (*models.Task, error)
	// ListTasks 按过滤条件查询，固定按 priority 升序返回
	ListTasks(filter TaskFilter) ([]models.Task, error)
	UpdateTask(task *models.Task) error
	DeleteTask(id int64) error
	// ReorderTasks 将 priority 重设为 id 在序列中的下标（0 起），
	// 整批原子生效：要么全部更新，要么全部不变
	ReorderTasks(orderedIDs []int64) error

	// 健康检查
	HealthCheck() error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseLocalDB  bool
	PostgresDSN string
	Debug       bool
}

// NewDatabase 根据配置选择数据库实现
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if config.PostgresDSN != "" && !config.UseLocalDB {
		logs.Logger.Info("using PostgreSQL database")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	logs.Logger.Info("using in-memory database (development mode)")
	return NewLocalDatabase()
}
