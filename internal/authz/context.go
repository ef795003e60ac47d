package authz

import "github.com/frontier-maritime/intranet-api/internal/models"

// Context is the effective permission set attached to one request. It is
// built fresh per call from the resolved capabilities and discarded after.
type Context struct {
	catalog     *Catalog
	permissions map[string]struct{}
	roleIDs     []string
	Employee    *models.Employee
	Superuser   bool
}

// NewContext builds a request authorization context from resolved permission
// keys.
func NewContext(catalog *Catalog, permissions []string, roleIDs []string, employee *models.Employee) *Context {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return &Context{catalog: catalog, permissions: set, roleIDs: roleIDs, Employee: employee}
}

// NewSuperuserContext builds the unconditional-bypass context: every catalog
// key plus both sentinel keys, regardless of role resolution. It is valid
// even for an identity with no employee record.
func NewSuperuserContext(catalog *Catalog, employee *models.Employee) *Context {
	keys := make([]string, 0, len(catalog.ordered)+2)
	for _, e := range catalog.ordered {
		keys = append(keys, e.Key)
	}
	keys = append(keys, PermSuperAdmin, PermAdminOverride)
	ctx := NewContext(catalog, keys, nil, employee)
	ctx.Superuser = true
	return ctx
}

// Has is the universal gate predicate: true iff the context holds super.admin,
// admin.override, the literal key, or the key's single alias.
func (c *Context) Has(key string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.permissions[PermSuperAdmin]; ok {
		return true
	}
	if _, ok := c.permissions[PermAdminOverride]; ok {
		return true
	}
	if _, ok := c.permissions[key]; ok {
		return true
	}
	if other, ok := c.catalog.Alias(key); ok {
		if _, held := c.permissions[other]; held {
			return true
		}
	}
	return false
}

// HasAny returns true when keys is empty (authenticated is enough) or any
// key passes Has.
func (c *Context) HasAny(keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		if c.Has(k) {
			return true
		}
	}
	return false
}

// RoleIDs returns the resolved role ids.
func (c *Context) RoleIDs() []string {
	return c.roleIDs
}

// Permissions returns the held keys, unordered.
func (c *Context) Permissions() []string {
	out := make([]string, 0, len(c.permissions))
	for k := range c.permissions {
		out = append(out, k)
	}
	return out
}

// Restricted reports whether the principal is an applicant-in-training who is
// confined to the college surface. Evaluated independently of permissions.
func (c *Context) Restricted() bool {
	if c == nil || c.Superuser {
		return false
	}
	return c.Employee.Restricted()
}
