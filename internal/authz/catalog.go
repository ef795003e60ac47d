package authz

// Permission keys. The catalog below must contain every key referenced
// anywhere in the system; the enumeration test keeps it honest.
const (
	PermEmployeesView    = "employees.view"
	PermEmployeesManage  = "employees.manage"
	PermRolesManage      = "roles.manage"
	PermCollegeView      = "college.view"
	PermCollegeManage    = "college.manage"
	PermProgressOverride = "progress.override"
	PermExamMark         = "exam.mark"
	PermVoyageView       = "voyage.view"
	PermVoyageManage     = "voyage.manage"
	PermVoyageSettle     = "voyage.settle"
	PermFormsView        = "forms.view"
	PermFormsManage      = "forms.manage"
	PermCashflowView     = "cashflow.view"
	PermCashflowManage   = "cashflow.manage"
	PermAuditView        = "audit.view"
	PermConfigManage     = "config.manage"
)

// Sentinel keys granted only through the superuser bypass. They are not
// catalog entries and cannot be assigned through roles.
const (
	PermSuperAdmin    = "super.admin"
	PermAdminOverride = "admin.override"
)

// PermissionInfo describes one grantable permission key.
type PermissionInfo struct {
	Key   string `json:"key"`
	Group string `json:"group"`
	Label string `json:"label"`
}

// aliasPair declares one legacy key equivalence. Pairs are declared once;
// the catalog constructor materialises both directions, so a one-sided entry
// cannot drift in.
type aliasPair struct {
	key    string
	legacy string
}

// Catalog is the immutable permission registry. Construct it once at process
// start with NewCatalog and inject it wherever permissions are checked.
type Catalog struct {
	ordered   []PermissionInfo
	known     map[string]struct{}
	alias     map[string]string
	canonical map[string]string
}

// NewCatalog builds the static permission catalog.
func NewCatalog() *Catalog {
	entries := []PermissionInfo{
		{Key: PermEmployeesView, Group: "employees", Label: "View employee directory"},
		{Key: PermEmployeesManage, Group: "employees", Label: "Manage employee records"},
		{Key: PermRolesManage, Group: "roles", Label: "Manage roles and assignments"},
		{Key: PermCollegeView, Group: "college", Label: "View college content"},
		{Key: PermCollegeManage, Group: "college", Label: "Administer the college"},
		{Key: PermProgressOverride, Group: "college", Label: "Override trainee progress"},
		{Key: PermExamMark, Group: "college", Label: "Grade exam attempts"},
		{Key: PermVoyageView, Group: "voyages", Label: "View voyages"},
		{Key: PermVoyageManage, Group: "voyages", Label: "Manage voyages"},
		{Key: PermVoyageSettle, Group: "voyages", Label: "Settle voyage finances"},
		{Key: PermFormsView, Group: "forms", Label: "View forms"},
		{Key: PermFormsManage, Group: "forms", Label: "Manage forms"},
		{Key: PermCashflowView, Group: "finance", Label: "View cashflow ledger"},
		{Key: PermCashflowManage, Group: "finance", Label: "Record cashflow entries"},
		{Key: PermAuditView, Group: "admin", Label: "View audit trail"},
		{Key: PermConfigManage, Group: "admin", Label: "Manage configuration"},
	}

	pairs := []aliasPair{
		{key: PermCollegeManage, legacy: "college:admin"},
		{key: PermProgressOverride, legacy: "progress:override"},
		{key: PermExamMark, legacy: "exam:mark"},
		{key: PermVoyageManage, legacy: "voyage:admin"},
		{key: PermCashflowManage, legacy: "cash:admin"},
		{key: PermEmployeesManage, legacy: "employees:admin"},
	}

	known := make(map[string]struct{}, len(entries)+len(pairs))
	for _, e := range entries {
		known[e.Key] = struct{}{}
	}

	alias := make(map[string]string, 2*len(pairs))
	canonical := make(map[string]string, 2*len(pairs))
	for _, p := range pairs {
		known[p.legacy] = struct{}{}
		alias[p.key] = p.legacy
		alias[p.legacy] = p.key
		canonical[p.key] = p.key
		canonical[p.legacy] = p.key
	}

	return &Catalog{ordered: entries, known: known, alias: alias, canonical: canonical}
}

// List returns the catalog entries in their stable display order. Legacy
// aliases are not listed; they only exist for equivalence checks.
func (c *Catalog) List() []PermissionInfo {
	out := make([]PermissionInfo, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// IsKnown reports whether the key is a catalog entry or a legacy alias.
func (c *Catalog) IsKnown(key string) bool {
	_, ok := c.known[key]
	return ok
}

// Alias returns the single-hop symmetric alias of the key, if one exists.
func (c *Catalog) Alias(key string) (string, bool) {
	other, ok := c.alias[key]
	return other, ok
}

// Canonical maps a legacy alias to its catalog key; catalog keys map to
// themselves. Canonical is idempotent: applying it twice equals applying it
// once.
func (c *Catalog) Canonical(key string) string {
	if canon, ok := c.canonical[key]; ok {
		return canon
	}
	return key
}

// Expand returns the key set grown by one alias hop. Expansion is idempotent.
func (c *Catalog) Expand(keys []string) []string {
	seen := make(map[string]struct{}, 2*len(keys))
	out := make([]string, 0, 2*len(keys))
	add := func(k string) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	for _, k := range keys {
		add(k)
		if other, ok := c.alias[k]; ok {
			add(other)
		}
	}
	return out
}
