// Package authz centralizes the task visibility and permission rules.
// Handlers and services never compare roles directly; every decision
// goes through the Engine so the rules live in exactly one place.
package authz

import (
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// Engine evaluates role and organization based permissions.
// It is stateless apart from the id of the root (HQ) organization.
type Engine struct {
	rootOrgID int64
}

// NewEngine creates an engine with the given root organization id.
func NewEngine(rootOrgID int64) *Engine {
	return &Engine{rootOrgID: rootOrgID}
}

// RootOrgID returns the configured root organization id.
func (e *Engine) RootOrgID() int64 {
	return e.rootOrgID
}

// IsRootAdmin reports whether the principal is an admin of the root
// organization. Root admins bypass all organization boundaries.
func (e *Engine) IsRootAdmin(p models.Principal) bool {
	return p.Role == models.RoleAdmin && p.OrganizationID == e.rootOrgID
}

// Scope translates a principal into the task filter it is allowed to read:
//   - root admin: everything, no filter
//   - admin/viewer: all tasks of their own organization
//   - owner: only tasks they created, regardless of organization
func (e *Engine) Scope(p models.Principal) database.TaskFilter {
	if e.IsRootAdmin(p) {
		return database.TaskFilter{}
	}
	switch p.Role {
	case models.RoleOwner:
		createdBy := p.UserID
		return database.TaskFilter{CreatedBy: &createdBy}
	default:
		orgID := p.OrganizationID
		return database.TaskFilter{OrganizationID: &orgID}
	}
}

// CanMutate reports whether the principal may update or delete the task.
// Allowed for root admins, admins of the task's organization, and the
// task's creator. Viewer exclusion happens at the role gate in front of
// the service; the engine itself only knows the three rules above.
func (e *Engine) CanMutate(p models.Principal, task *models.Task) bool {
	if e.IsRootAdmin(p) {
		return true
	}
	if p.Role == models.RoleAdmin && p.OrganizationID == task.OrganizationID {
		return true
	}
	return task.CreatedByID == p.UserID
}

// CanCreate reports whether the principal may create tasks.
func (e *Engine) CanCreate(p models.Principal) bool {
	return p.Role == models.RoleOwner || p.Role == models.RoleAdmin
}

// CanReorder reports whether the principal may rewrite task priorities.
// Reordering touches tasks across organizations, so only root admins
// are allowed.
func (e *Engine) CanReorder(p models.Principal) bool {
	return e.IsRootAdmin(p)
}
