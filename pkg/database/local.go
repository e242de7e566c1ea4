package database

import (
	"sort"
	"sync"
	"time"

	"taskboard-backend/pkg/models"
)

// LocalDatabase 内存数据库实现（开发/测试用，无外部依赖）
// 所有方法在同一把互斥锁下执行，天然保证 ReorderTasks 的原子性。
type LocalDatabase struct {
	mu sync.Mutex

	users map[int64]*models.User
	orgs  map[int64]*models.Organization
	tasks map[int64]*models.Task

	nextUserID int64
	nextOrgID  int64
	nextTaskID int64
}

// NewLocalDatabase 创建内存数据库实例
func NewLocalDatabase() DatabaseInterface {
	return &LocalDatabase{
		users:      make(map[int64]*models.User),
		orgs:       make(map[int64]*models.Organization),
		tasks:      make(map[int64]*models.Task),
		nextUserID: 1,
		nextOrgID:  1,
		nextTaskID: 1,
	}
}

// ================= Users =================

func (db *LocalDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	user.ID = db.nextUserID
	db.nextUserID++
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	db.users[user.ID] = &stored
	return nil
}

func (db *LocalDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (db *LocalDatabase) GetUserByID(id int64) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (db *LocalDatabase) CountUsers() (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// ================= Organizations =================

func (db *LocalDatabase) CreateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	org.ID = db.nextOrgID
	db.nextOrgID++
	org.CreatedAt = now
	org.UpdatedAt = now

	stored := *org
	db.orgs[org.ID] = &stored
	return nil
}

func (db *LocalDatabase) GetOrganization(id int64) (*models.Organization, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	o, ok := db.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (db *LocalDatabase) ListOrganizations() ([]models.Organization, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]models.Organization, 0, len(db.orgs))
	for _, o := range db.orgs {
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (db *LocalDatabase) ListChildOrganizations(parentID int64) ([]models.Organization, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []models.Organization
	for _, o := range db.orgs {
		if o.ParentID != nil && *o.ParentID == parentID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ================= Tasks =================

func (db *LocalDatabase) CreateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// 组织内现有最大 priority +1，空组织为 1
	maxPriority := 0
	for _, t := range db.tasks {
		if t.OrganizationID == task.OrganizationID && t.Priority > maxPriority {
			maxPriority = t.Priority
		}
	}

	now := time.Now()
	task.ID = db.nextTaskID
	db.nextTaskID++
	task.Priority = maxPriority + 1
	task.Completed = false
	task.CreatedAt = now
	task.UpdatedAt = now

	if u, ok := db.users[task.CreatedByID]; ok {
		task.CreatedByEmail = u.Email
	}

	stored := *task
	db.tasks[task.ID] = &stored
	return nil
}

func (db *LocalDatabase) GetTaskByID(id int64) (*models.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	db.attachCreatorEmail(&copied)
	return &copied, nil
}

func (db *LocalDatabase) ListTasks(filter TaskFilter) ([]models.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []models.Task
	for _, t := range db.tasks {
		if filter.OrganizationID != nil && t.OrganizationID != *filter.OrganizationID {
			continue
		}
		if filter.CreatedBy != nil && t.CreatedByID != *filter.CreatedBy {
			continue
		}
		copied := *t
		db.attachCreatorEmail(&copied)
		result = append(result, copied)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (db *LocalDatabase) UpdateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}

	// created_by 与 organization_id 创建后不可变
	existing.Title = task.Title
	existing.Description = task.Description
	existing.Completed = task.Completed
	existing.Priority = task.Priority
	existing.UpdatedAt = time.Now()

	task.CreatedByID = existing.CreatedByID
	task.OrganizationID = existing.OrganizationID
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = existing.UpdatedAt
	return nil
}

func (db *LocalDatabase) DeleteTask(id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(db.tasks, id)
	return nil
}

func (db *LocalDatabase) ReorderTasks(orderedIDs []int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	for i, id := range orderedIDs {
		if t, ok := db.tasks[id]; ok {
			t.Priority = i
			t.UpdatedAt = now
		}
	}
	return nil
}

// attachCreatorEmail 模拟存储层对创建者邮箱的 JOIN
func (db *LocalDatabase) attachCreatorEmail(t *models.Task) {
	if u, ok := db.users[t.CreatedByID]; ok {
		t.CreatedByEmail = u.Email
	}
}

// ================= Misc =================

func (db *LocalDatabase) HealthCheck() error {
	return nil
}

func (db *LocalDatabase) Close() error {
	return nil
}
