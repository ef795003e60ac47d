package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// everyReferencedKey enumerates each permission constant used by route gates
// and services. Any new key must be added to the catalog and to this list.
var everyReferencedKey = []string{
	PermEmployeesView,
	PermEmployeesManage,
	PermRolesManage,
	PermCollegeView,
	PermCollegeManage,
	PermProgressOverride,
	PermExamMark,
	PermVoyageView,
	PermVoyageManage,
	PermVoyageSettle,
	PermFormsView,
	PermFormsManage,
	PermCashflowView,
	PermCashflowManage,
	PermAuditView,
	PermConfigManage,
}

func TestCatalogContainsEveryReferencedKey(t *testing.T) {
	catalog := NewCatalog()
	for _, key := range everyReferencedKey {
		assert.True(t, catalog.IsKnown(key), "missing catalog entry for %q", key)
	}
	require.Len(t, catalog.List(), len(everyReferencedKey))
}

func TestCatalogAliasSymmetry(t *testing.T) {
	catalog := NewCatalog()
	for _, entry := range catalog.List() {
		legacy, ok := catalog.Alias(entry.Key)
		if !ok {
			continue
		}
		back, ok := catalog.Alias(legacy)
		require.True(t, ok, "alias %q has no reverse mapping", legacy)
		assert.Equal(t, entry.Key, back)
		assert.True(t, catalog.IsKnown(legacy))
	}
}

func TestCatalogCanonicalIdempotent(t *testing.T) {
	catalog := NewCatalog()
	keys := append([]string{"college:admin", "progress:override", "exam:mark"}, everyReferencedKey...)
	for _, key := range keys {
		once := catalog.Canonical(key)
		assert.Equal(t, once, catalog.Canonical(once), "canonical not idempotent for %q", key)
	}
}

func TestCatalogExpandIdempotent(t *testing.T) {
	catalog := NewCatalog()
	once := catalog.Expand([]string{PermCollegeManage, PermVoyageView})
	twice := catalog.Expand(once)
	assert.ElementsMatch(t, once, twice)
	assert.Contains(t, once, "college:admin")
}

func TestCatalogUnknownKey(t *testing.T) {
	catalog := NewCatalog()
	assert.False(t, catalog.IsKnown("no.such.key"))
	assert.Equal(t, "no.such.key", catalog.Canonical("no.such.key"))
	_, ok := catalog.Alias("no.such.key")
	assert.False(t, ok)
}

func TestCatalogSentinelsNotListed(t *testing.T) {
	catalog := NewCatalog()
	assert.False(t, catalog.IsKnown(PermSuperAdmin))
	assert.False(t, catalog.IsKnown(PermAdminOverride))
}
