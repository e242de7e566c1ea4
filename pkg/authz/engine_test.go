package authz

import (
	"testing"

	"taskboard-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootOrg int64 = 1

func principal(role models.Role, orgID, userID int64) models.Principal {
	return models.Principal{UserID: userID, Role: role, OrganizationID: orgID}
}

func TestScope(t *testing.T) {
	engine := NewEngine(rootOrg)

	t.Run("root admin sees everything", func(t *testing.T) {
		filter := engine.Scope(principal(models.RoleAdmin, rootOrg, 10))
		assert.Nil(t, filter.OrganizationID)
		assert.Nil(t, filter.CreatedBy)
	})

	t.Run("branch admin scoped to own org", func(t *testing.T) {
		filter := engine.Scope(principal(models.RoleAdmin, 2, 10))
		require.NotNil(t, filter.OrganizationID)
		assert.Equal(t, int64(2), *filter.OrganizationID)
		assert.Nil(t, filter.CreatedBy)
	})

	t.Run("viewer scoped to own org", func(t *testing.T) {
		filter := engine.Scope(principal(models.RoleViewer, 2, 10))
		require.NotNil(t, filter.OrganizationID)
		assert.Equal(t, int64(2), *filter.OrganizationID)
		assert.Nil(t, filter.CreatedBy)
	})

	t.Run("owner scoped to own tasks only", func(t *testing.T) {
		filter := engine.Scope(principal(models.RoleOwner, 2, 10))
		require.NotNil(t, filter.CreatedBy)
		assert.Equal(t, int64(10), *filter.CreatedBy)
		assert.Nil(t, filter.OrganizationID)
	})

	t.Run("viewer in root org is not a root admin", func(t *testing.T) {
		filter := engine.Scope(principal(models.RoleViewer, rootOrg, 10))
		require.NotNil(t, filter.OrganizationID)
		assert.Equal(t, rootOrg, *filter.OrganizationID)
	})
}

func TestCanMutate(t *testing.T) {
	engine := NewEngine(rootOrg)

	taskInOrg2 := &models.Task{ID: 1, OrganizationID: 2, CreatedByID: 20}
	taskInRootOrg := &models.Task{ID: 2, OrganizationID: rootOrg, CreatedByID: 5}

	tests := []struct {
		name string
		p    models.Principal
		task *models.Task
		want bool
	}{
		{"root admin can edit any org's task", principal(models.RoleAdmin, rootOrg, 10), taskInOrg2, true},
		{"branch admin can edit same-org task by someone else", principal(models.RoleAdmin, 2, 10), taskInOrg2, true},
		{"branch admin cannot edit root org task", principal(models.RoleAdmin, 2, 10), taskInRootOrg, false},
		{"owner can edit own task", principal(models.RoleOwner, 2, 20), taskInOrg2, true},
		{"owner cannot edit someone else's task", principal(models.RoleOwner, 2, 21), taskInOrg2, false},
		{"viewer cannot edit same-org task", principal(models.RoleViewer, 2, 10), taskInOrg2, false},
		{"creator rule is role-independent", principal(models.RoleViewer, 2, 20), taskInOrg2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.CanMutate(tt.p, tt.task))
		})
	}
}

func TestCanCreate(t *testing.T) {
	engine := NewEngine(rootOrg)

	assert.True(t, engine.CanCreate(principal(models.RoleOwner, 2, 10)))
	assert.True(t, engine.CanCreate(principal(models.RoleAdmin, 2, 10)))
	assert.False(t, engine.CanCreate(principal(models.RoleViewer, 2, 10)))
	assert.False(t, engine.CanCreate(principal(models.RoleViewer, rootOrg, 10)))
}

func TestCanReorder(t *testing.T) {
	engine := NewEngine(rootOrg)

	assert.True(t, engine.CanReorder(principal(models.RoleAdmin, rootOrg, 10)))
	assert.False(t, engine.CanReorder(principal(models.RoleAdmin, 2, 10)))
	assert.False(t, engine.CanReorder(principal(models.RoleOwner, rootOrg, 10)))
	assert.False(t, engine.CanReorder(principal(models.RoleViewer, rootOrg, 10)))
}

func TestConfigurableRootOrg(t *testing.T) {
	engine := NewEngine(7)

	assert.True(t, engine.IsRootAdmin(principal(models.RoleAdmin, 7, 10)))
	assert.False(t, engine.IsRootAdmin(principal(models.RoleAdmin, 1, 10)))
	assert.Equal(t, int64(7), engine.RootOrgID())
}
