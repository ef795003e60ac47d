package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type mockRoleAdminRepo struct {
	roles map[string]models.Role

	created     *models.Role
	replaced    []string
	assigned    [2]string
	unassigned  [2]string
	mappedGroup [2]string
	unmapped    string
	rankKeys    []string
}

func (m *mockRoleAdminRepo) List(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRoleAdminRepo) FindByID(ctx context.Context, id string) (*models.Role, error) {
	if r, ok := m.roles[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoleAdminRepo) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = "role-new"
	}
	m.created = role
	return nil
}

func (m *mockRoleAdminRepo) ReplacePermissions(ctx context.Context, roleID string, keys []string) error {
	m.replaced = keys
	return nil
}

func (m *mockRoleAdminRepo) Assign(ctx context.Context, identityID, roleID string) error {
	m.assigned = [2]string{identityID, roleID}
	return nil
}

func (m *mockRoleAdminRepo) Unassign(ctx context.Context, identityID, roleID string) error {
	m.unassigned = [2]string{identityID, roleID}
	return nil
}

func (m *mockRoleAdminRepo) MapGroup(ctx context.Context, groupID, roleID string) error {
	m.mappedGroup = [2]string{groupID, roleID}
	return nil
}

func (m *mockRoleAdminRepo) UnmapGroup(ctx context.Context, groupID string) error {
	m.unmapped = groupID
	return nil
}

func (m *mockRoleAdminRepo) SetRankPermissions(ctx context.Context, rank string, keys []string) error {
	m.rankKeys = keys
	return nil
}

func newRoleService(repo *mockRoleAdminRepo) *RoleService {
	cache := NewCapabilityCacheService(nil, nil, 0, zap.NewNop())
	return NewRoleService(repo, authz.NewCatalog(), cache, nil, zap.NewNop())
}

func TestRoleServiceCreateValidatesKeys(t *testing.T) {
	repo := &mockRoleAdminRepo{}
	svc := newRoleService(repo)

	role, err := svc.Create(context.Background(), models.CreateRoleRequest{
		Name:        "College Staff",
		Permissions: []string{authz.PermCollegeView, authz.PermCollegeManage},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{authz.PermCollegeView, authz.PermCollegeManage}, role.Permissions)

	_, err = svc.Create(context.Background(), models.CreateRoleRequest{
		Name:        "Bad Role",
		Permissions: []string{"no.such.key"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRoleServiceSentinelsAreNotGrantable(t *testing.T) {
	svc := newRoleService(&mockRoleAdminRepo{})

	for _, key := range []string{authz.PermSuperAdmin, authz.PermAdminOverride} {
		_, err := svc.Create(context.Background(), models.CreateRoleRequest{
			Name:        "Escalation",
			Permissions: []string{key},
		})
		require.Error(t, err, key)
		appErr := appErrors.FromError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Contains(t, appErr.Message, "cannot be granted through roles")
	}
}

func TestRoleServiceReplacePermissions(t *testing.T) {
	repo := &mockRoleAdminRepo{roles: map[string]models.Role{
		"r1": {ID: "r1", Name: "Ops"},
	}}
	svc := newRoleService(repo)

	err := svc.ReplacePermissions(context.Background(), "r1", models.ReplacePermissionsRequest{
		Permissions: []string{authz.PermVoyageView, authz.PermVoyageManage},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{authz.PermVoyageView, authz.PermVoyageManage}, repo.replaced)

	err = svc.ReplacePermissions(context.Background(), "missing", models.ReplacePermissionsRequest{
		Permissions: []string{authz.PermVoyageView},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRoleServiceAssignRequiresExistingRole(t *testing.T) {
	repo := &mockRoleAdminRepo{roles: map[string]models.Role{
		"r1": {ID: "r1", Name: "Ops"},
	}}
	svc := newRoleService(repo)

	require.NoError(t, svc.Assign(context.Background(), "id1", "r1"))
	assert.Equal(t, [2]string{"id1", "r1"}, repo.assigned)

	err := svc.Assign(context.Background(), "id1", "missing")
	require.Error(t, err)
}

func TestRoleServiceMapGroup(t *testing.T) {
	repo := &mockRoleAdminRepo{roles: map[string]models.Role{
		"r1": {ID: "r1", Name: "Ops"},
	}}
	svc := newRoleService(repo)

	require.NoError(t, svc.MapGroup(context.Background(), "g1", "r1"))
	assert.Equal(t, [2]string{"g1", "r1"}, repo.mappedGroup)

	require.NoError(t, svc.UnmapGroup(context.Background(), "g1"))
	assert.Equal(t, "g1", repo.unmapped)
}

func TestRoleServiceSetRankPermissions(t *testing.T) {
	repo := &mockRoleAdminRepo{}
	svc := newRoleService(repo)

	require.NoError(t, svc.SetRankPermissions(context.Background(), "Captain", []string{authz.PermVoyageSettle}))
	assert.Equal(t, []string{authz.PermVoyageSettle}, repo.rankKeys)

	err := svc.SetRankPermissions(context.Background(), "", []string{authz.PermVoyageSettle})
	require.Error(t, err)

	err = svc.SetRankPermissions(context.Background(), "Captain", []string{"bogus"})
	require.Error(t, err)
}
