package models

import "time"

// Organization represents a tenant. The hierarchy is two levels deep:
// the root (HQ) organization has no parent, branches point at it.
type Organization struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *int64    `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OrganizationNode 组织及其下级分支（用于 /api/orgs 的层级展示）
type OrganizationNode struct {
	Organization
	Children []Organization `json:"children"`
}
