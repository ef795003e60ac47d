package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type mockRoleResolverRepo struct {
	direct    []string
	mapped    []string
	rolePerms []string
	rankPerms []string
	err       error
}

func (m *mockRoleResolverRepo) FindRoleIDsByIdentity(ctx context.Context, identityID string) ([]string, error) {
	return m.direct, m.err
}

func (m *mockRoleResolverRepo) FindRoleIDsByGroups(ctx context.Context, groupIDs []string) ([]string, error) {
	return m.mapped, m.err
}

func (m *mockRoleResolverRepo) FindPermissionsByRoleIDs(ctx context.Context, roleIDs []string) ([]string, error) {
	return m.rolePerms, m.err
}

func (m *mockRoleResolverRepo) FindPermissionsByRank(ctx context.Context, rank string) ([]string, error) {
	return m.rankPerms, m.err
}

type mockEmployeeReader struct {
	employee *models.Employee
	err      error
}

func (m *mockEmployeeReader) FindByIdentity(ctx context.Context, identityID string) (*models.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.employee == nil {
		return nil, sql.ErrNoRows
	}
	return m.employee, nil
}

type mockCapabilityCache struct {
	caps map[string]*models.Capabilities
	sets int
}

func (m *mockCapabilityCache) GetCapabilities(ctx context.Context, identityID string) (*models.Capabilities, bool) {
	c, ok := m.caps[identityID]
	return c, ok
}

func (m *mockCapabilityCache) SetCapabilities(ctx context.Context, identityID string, caps *models.Capabilities) {
	if m.caps == nil {
		m.caps = make(map[string]*models.Capabilities)
	}
	m.caps[identityID] = caps
	m.sets++
}

func TestResolverServiceResolveCapabilitiesUnions(t *testing.T) {
	repo := &mockRoleResolverRepo{
		direct:    []string{"r1", "r2"},
		mapped:    []string{"r2", "r3"},
		rolePerms: []string{authz.PermCollegeView},
		rankPerms: []string{authz.PermVoyageView},
	}
	svc := NewResolverService(repo, &mockEmployeeReader{}, authz.NewCatalog(), nil, zap.NewNop())

	caps, err := svc.ResolveCapabilities(context.Background(), "id1", []string{"g1"}, "Captain")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, caps.RoleIDs)
	assert.Contains(t, caps.Permissions, authz.PermCollegeView)
	assert.Contains(t, caps.Permissions, authz.PermVoyageView)
}

func TestResolverServiceStorageFailureIsUnavailable(t *testing.T) {
	repo := &mockRoleResolverRepo{err: errors.New("connection refused")}
	svc := NewResolverService(repo, &mockEmployeeReader{}, authz.NewCatalog(), nil, zap.NewNop())

	_, err := svc.ResolveCapabilities(context.Background(), "id1", nil, "")
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
}

func TestResolverServiceBuildContextSuperuserWithoutEmployee(t *testing.T) {
	repo := &mockRoleResolverRepo{err: errors.New("must not be called")}
	svc := NewResolverService(repo, &mockEmployeeReader{}, authz.NewCatalog(), nil, zap.NewNop())

	authzCtx, err := svc.BuildContext(context.Background(), &models.JWTClaims{IdentityID: "root", Superuser: true})
	require.NoError(t, err)
	assert.True(t, authzCtx.Superuser)
	assert.Nil(t, authzCtx.Employee)
	assert.True(t, authzCtx.Has(authz.PermRolesManage))
	assert.False(t, authzCtx.Restricted())
}

func TestResolverServiceBuildContextCachesResolution(t *testing.T) {
	repo := &mockRoleResolverRepo{rolePerms: []string{authz.PermCollegeView}}
	cache := &mockCapabilityCache{}
	svc := NewResolverService(repo, &mockEmployeeReader{}, authz.NewCatalog(), cache, zap.NewNop())

	claims := &models.JWTClaims{IdentityID: "id1"}
	first, err := svc.BuildContext(context.Background(), claims)
	require.NoError(t, err)
	assert.True(t, first.Has(authz.PermCollegeView))
	assert.Equal(t, 1, cache.sets)

	// Second build must come from the cache without another resolution.
	repo.err = errors.New("storage down")
	second, err := svc.BuildContext(context.Background(), claims)
	require.NoError(t, err)
	assert.True(t, second.Has(authz.PermCollegeView))
	assert.Equal(t, 1, cache.sets)
}

func TestResolverServiceBuildContextEmployeeFailureIsUnavailable(t *testing.T) {
	employees := &mockEmployeeReader{err: errors.New("timeout")}
	svc := NewResolverService(&mockRoleResolverRepo{}, employees, authz.NewCatalog(), nil, zap.NewNop())

	_, err := svc.BuildContext(context.Background(), &models.JWTClaims{IdentityID: "id1"})
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
}

func TestResolverServiceBuildContextRestrictedTrainee(t *testing.T) {
	employees := &mockEmployeeReader{employee: &models.Employee{
		ID: "emp1", IdentityID: "id1", UserStatus: models.StatusApplicantAccepted,
	}}
	repo := &mockRoleResolverRepo{rolePerms: []string{authz.PermCollegeView}}
	svc := NewResolverService(repo, employees, authz.NewCatalog(), nil, zap.NewNop())

	authzCtx, err := svc.BuildContext(context.Background(), &models.JWTClaims{IdentityID: "id1"})
	require.NoError(t, err)
	assert.True(t, authzCtx.Restricted())
	assert.True(t, authzCtx.Has(authz.PermCollegeView))
	assert.False(t, authzCtx.Has(authz.PermCashflowView))
}
