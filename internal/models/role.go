package models

import "time"

// Role is a named permission bundle with a stable sort position.
type Role struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	Permissions []string  `db:"-" json:"permissions"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RolePermission links a role to one granted permission key.
type RolePermission struct {
	RoleID        string `db:"role_id" json:"role_id"`
	PermissionKey string `db:"permission_key" json:"permission_key"`
}

// RoleAssignment directly assigns a role to an identity.
type RoleAssignment struct {
	ID         string    `db:"id" json:"id"`
	IdentityID string    `db:"identity_id" json:"identity_id"`
	RoleID     string    `db:"role_id" json:"role_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// GroupRoleMapping grants a role to every member of an external group.
// A group maps to exactly one role.
type GroupRoleMapping struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	RoleID    string    `db:"role_id" json:"role_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RankPermissionMapping grants permission keys by rank, additively to any
// role-derived grants. Rank comparison is case-insensitive.
type RankPermissionMapping struct {
	ID            string    `db:"id" json:"id"`
	Rank          string    `db:"rank" json:"rank"`
	PermissionKey string    `db:"permission_key" json:"permission_key"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CreateRoleRequest is the payload for creating a role with its grants.
type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	SortOrder   int      `json:"sort_order"`
	Permissions []string `json:"permissions"`
}

// ReplacePermissionsRequest swaps a role's grant set.
type ReplacePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

// Capabilities is the resolved authorization output for one principal.
type Capabilities struct {
	RoleIDs     []string `json:"role_ids"`
	Permissions []string `json:"permissions"`
}
