package services

import (
	"sync"
	"testing"

	"taskboard-backend/pkg/authz"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorderAuditor 同步记录审计事件，便于断言
type recorderAuditor struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recorderAuditor) Emit(event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorderAuditor) all() []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEvent(nil), r.events...)
}

// fixture 测试环境：内存库 + 两个组织 + 四个角色的用户
type fixture struct {
	db      database.DatabaseInterface
	service *TaskService
	audit   *recorderAuditor

	hqAdmin      models.Principal
	branchAdmin  models.Principal
	branchOwner  models.Principal
	branchViewer models.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := database.NewLocalDatabase()

	hq := &models.Organization{Name: "HQ"}
	require.NoError(t, db.CreateOrganization(hq))
	branchParent := hq.ID
	branch := &models.Organization{Name: "Branch", ParentID: &branchParent}
	require.NoError(t, db.CreateOrganization(branch))

	newUser := func(email string, role models.Role, orgID int64) models.Principal {
		u := &models.User{Email: email, Password: "x", Role: role, OrganizationID: orgID}
		require.NoError(t, db.CreateUser(u))
		return models.Principal{UserID: u.ID, Role: u.Role, OrganizationID: u.OrganizationID}
	}

	f := &fixture{
		db:           db,
		audit:        &recorderAuditor{},
		hqAdmin:      newUser("hq_admin@test.com", models.RoleAdmin, hq.ID),
		branchAdmin:  newUser("branch_admin@test.com", models.RoleAdmin, branch.ID),
		branchOwner:  newUser("branch_owner@test.com", models.RoleOwner, branch.ID),
		branchViewer: newUser("branch_viewer@test.com", models.RoleViewer, branch.ID),
	}
	f.service = NewTaskService(db, authz.NewEngine(hq.ID), f.audit)
	return f
}

func (f *fixture) mustCreate(t *testing.T, p models.Principal, title string) models.TaskResponse {
	t.Helper()
	resp, err := f.service.Create(p, models.CreateTaskRequest{Title: title})
	require.NoError(t, err)
	return *resp
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)

	f.mustCreate(t, f.hqAdmin, "hq task")
	adminTask := f.mustCreate(t, f.branchAdmin, "branch admin task")
	ownerTask := f.mustCreate(t, f.branchOwner, "branch owner task")

	t.Run("hq admin sees all organizations", func(t *testing.T) {
		tasks, err := f.service.List(f.hqAdmin)
		require.NoError(t, err)
		assert.Len(t, tasks, 3)
	})

	t.Run("branch admin sees only own org", func(t *testing.T) {
		tasks, err := f.service.List(f.branchAdmin)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.Equal(t, adminTask.OrganizationID, task.OrganizationID)
		}
	})

	t.Run("viewer sees own org", func(t *testing.T) {
		tasks, err := f.service.List(f.branchViewer)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("owner sees only own tasks", func(t *testing.T) {
		tasks, err := f.service.List(f.branchOwner)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, ownerTask.ID, tasks[0].ID)
		assert.Equal(t, f.branchOwner.UserID, tasks[0].CreatedBy.ID)
	})
}

func TestCreateAssignsOrgAndPriority(t *testing.T) {
	f := newFixture(t)

	t.Run("priority increases per organization", func(t *testing.T) {
		first := f.mustCreate(t, f.branchOwner, "first")
		second := f.mustCreate(t, f.branchAdmin, "second")
		other := f.mustCreate(t, f.hqAdmin, "hq first")

		firstStored, err := f.db.GetTaskByID(first.ID)
		require.NoError(t, err)
		secondStored, err := f.db.GetTaskByID(second.ID)
		require.NoError(t, err)
		otherStored, err := f.db.GetTaskByID(other.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, firstStored.Priority)
		assert.Equal(t, 2, secondStored.Priority)
		// 其他组织的序列独立
		assert.Equal(t, 1, otherStored.Priority)
	})

	t.Run("client supplied organization is ignored", func(t *testing.T) {
		resp, err := f.service.Create(f.branchOwner, models.CreateTaskRequest{
			Title:          "sneaky",
			OrganizationID: 999,
		})
		require.NoError(t, err)
		assert.Equal(t, f.branchOwner.OrganizationID, resp.OrganizationID)
	})

	t.Run("created task starts incomplete with creator attached", func(t *testing.T) {
		resp := f.mustCreate(t, f.branchAdmin, "fresh")
		assert.False(t, resp.Completed)
		assert.Equal(t, f.branchAdmin.UserID, resp.CreatedBy.ID)
		assert.Equal(t, "branch_admin@test.com", resp.CreatedBy.Email)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		_, err := f.service.Create(f.branchViewer, models.CreateTaskRequest{Title: "nope"})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		_, err := f.service.Create(f.branchOwner, models.CreateTaskRequest{Title: "   "})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestListOrderedByPriority(t *testing.T) {
	f := newFixture(t)

	a := f.mustCreate(t, f.hqAdmin, "a")
	b := f.mustCreate(t, f.hqAdmin, "b")
	c := f.mustCreate(t, f.hqAdmin, "c")

	// 重排为 c, a, b
	require.NoError(t, f.service.Reorder(f.hqAdmin, []int64{c.ID, a.ID, b.ID}))

	tasks, err := f.service.List(f.hqAdmin)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, c.ID, tasks[0].ID)
	assert.Equal(t, a.ID, tasks[1].ID)
	assert.Equal(t, b.ID, tasks[2].ID)
}

func TestUpdatePermissions(t *testing.T) {
	f := newFixture(t)

	hqTask := f.mustCreate(t, f.hqAdmin, "hq task")
	ownerTask := f.mustCreate(t, f.branchOwner, "owner task")

	newTitle := "renamed"

	t.Run("hq admin can edit any task", func(t *testing.T) {
		resp, err := f.service.Update(f.hqAdmin, ownerTask.ID, models.TaskPatch{Title: &newTitle})
		require.NoError(t, err)
		assert.Equal(t, "renamed", resp.Title)
	})

	t.Run("branch admin can edit same-org task by someone else", func(t *testing.T) {
		done := true
		resp, err := f.service.Update(f.branchAdmin, ownerTask.ID, models.TaskPatch{Completed: &done})
		require.NoError(t, err)
		assert.True(t, resp.Completed)
	})

	t.Run("branch admin cannot edit hq task", func(t *testing.T) {
		_, err := f.service.Update(f.branchAdmin, hqTask.ID, models.TaskPatch{Title: &newTitle})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("owner can edit own task", func(t *testing.T) {
		desc := "mine"
		resp, err := f.service.Update(f.branchOwner, ownerTask.ID, models.TaskPatch{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "mine", resp.Description)
	})

	t.Run("owner cannot edit someone else's task", func(t *testing.T) {
		adminTask := f.mustCreate(t, f.branchAdmin, "admin task")
		_, err := f.service.Update(f.branchOwner, adminTask.ID, models.TaskPatch{Title: &newTitle})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("not found resolved before permission", func(t *testing.T) {
		// 无权限的调用方查询不存在的任务也必须得到 NotFound
		_, err := f.service.Update(f.branchViewer, 424242, models.TaskPatch{Title: &newTitle})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestUpdateImmutableFields(t *testing.T) {
	f := newFixture(t)

	task := f.mustCreate(t, f.branchOwner, "stable")

	title := "patched"
	resp, err := f.service.Update(f.hqAdmin, task.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)

	// 创建者与组织归属不受补丁影响
	assert.Equal(t, f.branchOwner.UserID, resp.CreatedBy.ID)
	assert.Equal(t, f.branchOwner.OrganizationID, resp.OrganizationID)

	stored, err := f.db.GetTaskByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, f.branchOwner.UserID, stored.CreatedByID)
	assert.Equal(t, f.branchOwner.OrganizationID, stored.OrganizationID)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)

	t.Run("creator can delete own task", func(t *testing.T) {
		task := f.mustCreate(t, f.branchOwner, "short lived")
		require.NoError(t, f.service.Delete(f.branchOwner, task.ID))

		_, err := f.db.GetTaskByID(task.ID)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("viewer cannot delete", func(t *testing.T) {
		task := f.mustCreate(t, f.branchAdmin, "protected")
		err := f.service.Delete(f.branchViewer, task.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("nonexistent id yields not found and no audit", func(t *testing.T) {
		before := len(f.audit.all())
		err := f.service.Delete(f.hqAdmin, 424242)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Len(t, f.audit.all(), before)
	})
}

func TestReorder(t *testing.T) {
	f := newFixture(t)

	a := f.mustCreate(t, f.branchOwner, "a")
	b := f.mustCreate(t, f.branchAdmin, "b")
	c := f.mustCreate(t, f.hqAdmin, "c")

	t.Run("non hq admin denied with zero writes", func(t *testing.T) {
		for _, p := range []models.Principal{f.branchAdmin, f.branchOwner, f.branchViewer} {
			err := f.service.Reorder(p, []int64{c.ID, a.ID, b.ID})
			assert.ErrorIs(t, err, ErrPermissionDenied)
		}

		// 顺序未被改动
		storedA, err := f.db.GetTaskByID(a.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, storedA.Priority)
	})

	t.Run("hq admin reorder assigns index as priority", func(t *testing.T) {
		before := len(f.audit.all())
		require.NoError(t, f.service.Reorder(f.hqAdmin, []int64{c.ID, a.ID, b.ID}))

		for i, id := range []int64{c.ID, a.ID, b.ID} {
			stored, err := f.db.GetTaskByID(id)
			require.NoError(t, err)
			assert.Equal(t, i, stored.Priority)
		}

		// 每个任务一条审计事件
		events := f.audit.all()[before:]
		require.Len(t, events, 3)
		for _, e := range events {
			assert.Equal(t, models.AuditActionReorder, e.Action)
		}
	})

	t.Run("empty sequence rejected", func(t *testing.T) {
		err := f.service.Reorder(f.hqAdmin, nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		err := f.service.Reorder(f.hqAdmin, []int64{a.ID, a.ID})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAuditEmittedOnlyOnSuccess(t *testing.T) {
	f := newFixture(t)

	task := f.mustCreate(t, f.branchOwner, "audited")
	require.Len(t, f.audit.all(), 1)
	assert.Equal(t, models.AuditActionCreate, f.audit.all()[0].Action)
	assert.Equal(t, task.ID, f.audit.all()[0].TaskID)
	assert.Equal(t, f.branchOwner.UserID, f.audit.all()[0].ActorID)

	// 被拒绝的操作不产生事件
	title := "x"
	_, err := f.service.Update(f.branchViewer, task.ID, models.TaskPatch{Title: &title})
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Len(t, f.audit.all(), 1)

	require.NoError(t, f.service.Delete(f.branchOwner, task.ID))
	events := f.audit.all()
	require.Len(t, events, 2)
	assert.Equal(t, models.AuditActionDelete, events[1].Action)
}

func TestServiceErrorsAreSentinels(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Update(f.hqAdmin, 999, models.TaskPatch{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
