package rbac

import "time"

// EntityStatus gates whether a role or permission participates in
// resolution.
type EntityStatus string

const (
	StatusActive   EntityStatus = "active"
	StatusInactive EntityStatus = "inactive"
)

// Action is the operation a permission grants. Manage is the wildcard: it
// satisfies any requested action on its resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// PermissionType classifies what a permission guards.
type PermissionType string

const (
	TypeMenu      PermissionType = "menu"
	TypeOperation PermissionType = "operation"
	TypeData      PermissionType = "data"
)

// Permission grants one action on one resource.
type Permission struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Code        string         `json:"code"`
	Resource    string         `json:"resource"`
	Action      Action         `json:"action"`
	Type        PermissionType `json:"type"`
	Status      EntityStatus   `json:"status"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (p *Permission) SetID(id int64) { p.ID = id }

// Role bundles permissions. PermissionIDs stores only ids; the resolver
// joins them against active permissions.
type Role struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Code          string       `json:"code"`
	Description   string       `json:"description,omitempty"`
	Level         int          `json:"level"`
	Status        EntityStatus `json:"status"`
	PermissionIDs []int64      `json:"permissionIds"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

func (r *Role) SetID(id int64) { r.ID = id }
