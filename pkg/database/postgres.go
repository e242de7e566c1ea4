package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"taskboard-backend/pkg/models"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open PostgreSQL connection: %v", err))
	}

	// 设置连接池参数
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// 测试连接
	if err = db.Ping(); err != nil {
		db.Close()
		panic(fmt.Sprintf("failed to ping PostgreSQL: %v", err))
	}

	return &PostgresDatabase{db: db}
}

// newPostgresDatabaseFromConn 用已有连接构造实例（测试用）
func newPostgresDatabaseFromConn(db *sql.DB) *PostgresDatabase {
	return &PostgresDatabase{db: db}
}

// ================= Users =================

// CreateUser 创建用户
func (db *PostgresDatabase) CreateUser(user *models.User) error {
	query := `
        INSERT INTO users (email, password_hash, role, organization_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, user.Email, user.Password, string(user.Role), user.OrganizationID).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(password_hash,''), role, organization_id, created_at, updated_at
        FROM users
        WHERE email = $1
    `
	var u models.User
	var role string
	err := db.db.QueryRow(query, email).Scan(
		&u.ID, &u.Email, &u.Password, &role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrap(ErrNotFound, "user")
		}
		return nil, errors.Wrap(err, "failed to get user by email")
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetUserByID 根据ID获取用户
func (db *PostgresDatabase) GetUserByID(id int64) (*models.User, error) {
	query := `
        SELECT id, email, role, organization_id, created_at, updated_at
        FROM users
        WHERE id = $1
    `
	var u models.User
	var role string
	err := db.db.QueryRow(query, id).Scan(
		&u.ID, &u.Email, &role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrap(ErrNotFound, "user")
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	u.Role = models.Role(role)
	return &u, nil
}

// CountUsers 统计用户数量（用于种子数据的幂等判断）
func (db *PostgresDatabase) CountUsers() (int, error) {
	var count int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count users")
	}
	return count, nil
}

// ================= Organizations =================

// CreateOrganization 创建组织
func (db *PostgresDatabase) CreateOrganization(org *models.Organization) error {
	query := `
        INSERT INTO organizations (name, parent_id, created_at, updated_at)
        VALUES ($1, $2, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, org.Name, org.ParentID).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create organization")
	}
	return nil
}

// GetOrganization 根据ID获取组织
func (db *PostgresDatabase) GetOrganization(id int64) (*models.Organization, error) {
	query := `SELECT id, name, parent_id, created_at, updated_at FROM organizations WHERE id = $1`
	var o models.Organization
	err := db.db.QueryRow(query, id).Scan(&o.ID, &o.Name, &o.ParentID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrap(ErrNotFound, "organization")
		}
		return nil, errors.Wrap(err, "failed to get organization")
	}
	return &o, nil
}

// ListOrganizations 列出全部组织
func (db *PostgresDatabase) ListOrganizations() ([]models.Organization, error) {
	rows, err := db.db.Query(`SELECT id, name, parent_id, created_at, updated_at FROM organizations ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list organizations")
	}
	defer rows.Close()
	return scanOrganizations(rows)
}

// ListChildOrganizations 列出直接下级组织
func (db *PostgresDatabase) ListChildOrganizations(parentID int64) ([]models.Organization, error) {
	rows, err := db.db.Query(`SELECT id, name, parent_id, created_at, updated_at FROM organizations WHERE parent_id = $1 ORDER BY id ASC`, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list child organizations")
	}
	defer rows.Close()
	return scanOrganizations(rows)
}

func scanOrganizations(rows *sql.Rows) ([]models.Organization, error) {
	var result []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.ParentID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan organization")
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating organizations")
	}
	return result, nil
}

// ================= Tasks =================

const taskSelectColumns = `
        t.id, t.title, COALESCE(t.description,''), t.priority, t.completed,
        t.created_by, u.email, t.organization_id, t.created_at, t.updated_at`

// CreateTask 创建任务
// priority 在同一条 INSERT 内计算为"组织内现有最大值 +1"（空组织为 1），
// 避免读取-写入两步之间的窗口扩大。
func (db *PostgresDatabase) CreateTask(task *models.Task) error {
	query := `
        INSERT INTO tasks (title, description, priority, completed, created_by, organization_id, created_at, updated_at)
        VALUES ($1, $2,
                (SELECT COALESCE(MAX(priority), 0) + 1 FROM tasks WHERE organization_id = $4),
                FALSE, $3, $4, NOW(), NOW())
        RETURNING id, priority, created_at, updated_at
    `
	err := db.db.QueryRow(query, task.Title, task.Description, task.CreatedByID, task.OrganizationID).
		Scan(&task.ID, &task.Priority, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create task")
	}
	task.Completed = false
	return nil
}

// GetTaskByID 根据ID获取任务（创建者邮箱通过显式 JOIN 取回）
func (db *PostgresDatabase) GetTaskByID(id int64) (*models.Task, error) {
	query := `
        SELECT ` + taskSelectColumns + `
        FROM tasks t
        JOIN users u ON u.id = t.created_by
        WHERE t.id = $1
    `
	var t models.Task
	err := db.db.QueryRow(query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Priority, &t.Completed,
		&t.CreatedByID, &t.CreatedByEmail, &t.OrganizationID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrap(ErrNotFound, "task")
		}
		return nil, errors.Wrap(err, "failed to get task")
	}
	return &t, nil
}

// ListTasks 按过滤条件查询任务，固定按 priority 升序
func (db *PostgresDatabase) ListTasks(filter TaskFilter) ([]models.Task, error) {
	query := `
        SELECT ` + taskSelectColumns + `
        FROM tasks t
        JOIN users u ON u.id = t.created_by
    `

	// 动态拼接 WHERE 条件
	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		conds = append(conds, fmt.Sprintf("t.organization_id = $%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		conds = append(conds, fmt.Sprintf("t.created_by = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.priority ASC, t.id ASC"

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Priority, &t.Completed,
			&t.CreatedByID, &t.CreatedByEmail, &t.OrganizationID, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating tasks")
	}
	return tasks, nil
}

// UpdateTask 更新任务
// 注意 SET 子句只覆盖可修改字段：created_by 和 organization_id 在创建后不可变。
func (db *PostgresDatabase) UpdateTask(task *models.Task) error {
	query := `
        UPDATE tasks
        SET title = $1, description = $2, completed = $3, priority = $4, updated_at = NOW()
        WHERE id = $5
    `
	result, err := db.db.Exec(query, task.Title, task.Description, task.Completed, task.Priority, task.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update task")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "task")
	}
	return nil
}

// DeleteTask 删除任务（硬删除）
func (db *PostgresDatabase) DeleteTask(id int64) error {
	result, err := db.db.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete task")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "task")
	}
	return nil
}

// ReorderTasks 整批重排 priority：id 在序列中的下标即新的 priority。
// 在单个事务中执行，失败时回滚，列表请求不会观察到半完成的状态。
func (db *PostgresDatabase) ReorderTasks(orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	tx, err := db.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin reorder transaction")
	}

	for i, id := range orderedIDs {
		if _, err := tx.Exec(`UPDATE tasks SET priority = $1, updated_at = NOW() WHERE id = $2`, i, id); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to reorder task %d", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit reorder transaction")
	}
	return nil
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
