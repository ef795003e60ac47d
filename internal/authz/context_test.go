package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/frontier-maritime/intranet-api/internal/models"
)

func TestContextHasLiteralAndAlias(t *testing.T) {
	catalog := NewCatalog()

	holdsCanonical := NewContext(catalog, []string{PermCollegeManage}, nil, nil)
	holdsLegacy := NewContext(catalog, []string{"college:admin"}, nil, nil)

	// Either half of the pair satisfies checks against both spellings.
	for _, key := range []string{PermCollegeManage, "college:admin"} {
		assert.True(t, holdsCanonical.Has(key), "canonical holder should satisfy %q", key)
		assert.True(t, holdsLegacy.Has(key), "legacy holder should satisfy %q", key)
	}

	assert.False(t, holdsCanonical.Has(PermVoyageManage))
}

func TestContextSuperuserBypassTotality(t *testing.T) {
	catalog := NewCatalog()
	ctx := NewSuperuserContext(catalog, nil)

	for _, entry := range catalog.List() {
		assert.True(t, ctx.Has(entry.Key), "superuser must satisfy %q", entry.Key)
	}
	assert.True(t, ctx.Has(PermSuperAdmin))
	assert.True(t, ctx.Has(PermAdminOverride))
	// Even for keys outside the catalog the override sentinels win.
	assert.True(t, ctx.Has("not.in.catalog"))
}

func TestContextHasAnyVacuousPass(t *testing.T) {
	catalog := NewCatalog()
	ctx := NewContext(catalog, nil, nil, nil)

	assert.True(t, ctx.HasAny(), "empty key set means authenticated is enough")
	assert.False(t, ctx.HasAny(PermCollegeManage, PermExamMark))

	ctx = NewContext(catalog, []string{PermExamMark}, nil, nil)
	assert.True(t, ctx.HasAny(PermCollegeManage, PermExamMark))
}

func TestContextRestricted(t *testing.T) {
	catalog := NewCatalog()
	passed := time.Now().UTC()

	trainee := &models.Employee{UserStatus: models.StatusApplicantAccepted}
	staff := &models.Employee{UserStatus: models.StatusActiveStaff}
	graduate := &models.Employee{UserStatus: models.StatusApplicantAccepted, CollegePassedAt: &passed}

	assert.True(t, NewContext(catalog, nil, nil, trainee).Restricted())
	assert.False(t, NewContext(catalog, nil, nil, staff).Restricted())
	assert.False(t, NewContext(catalog, nil, nil, graduate).Restricted())
	assert.False(t, NewContext(catalog, nil, nil, nil).Restricted())
	// Superuser is never restricted, whatever the employee row says.
	assert.False(t, NewSuperuserContext(catalog, trainee).Restricted())
}
