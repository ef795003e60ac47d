package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type mockSessionRepo struct {
	tokens   map[string]models.RefreshToken
	accounts map[string]models.BreakGlassAccount

	created *models.RefreshToken
	revoked []string
}

func (m *mockSessionRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]models.RefreshToken)
	}
	m.tokens[token.Token] = *token
	m.created = token
	return nil
}

func (m *mockSessionRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockSessionRepo) RevokeIdentityTokens(ctx context.Context, identityID string) error {
	return nil
}

func (m *mockSessionRepo) FindBreakGlassAccount(ctx context.Context, username string) (*models.BreakGlassAccount, error) {
	if a, ok := m.accounts[username]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func authConfig() AuthConfig {
	return AuthConfig{
		TokenSecret:   "test_secret",
		TokenExpiry:   15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "intranet-api",
		ExchangeKey:   "shared_key",
	}
}

func TestAuthServiceExchangeIssuesSession(t *testing.T) {
	sessions := &mockSessionRepo{}
	svc := NewAuthService(sessions, &mockAuditAppender{}, nil, zap.NewNop(), authConfig())

	resp, err := svc.Exchange(context.Background(), models.IdentityExchangeRequest{
		IdentityID:  "id-42",
		DisplayName: "J. Doe",
		GroupIDs:    []string{"g1"},
		ExchangeKey: "shared_key",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	require.NotNil(t, sessions.created)
	assert.Equal(t, "id-42", sessions.created.IdentityID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "id-42", claims.IdentityID)
	assert.Equal(t, []string{"g1"}, claims.GroupIDs)
	assert.False(t, claims.Superuser)
}

func TestAuthServiceExchangeRejectsWrongKey(t *testing.T) {
	svc := NewAuthService(&mockSessionRepo{}, &mockAuditAppender{}, nil, zap.NewNop(), authConfig())

	_, err := svc.Exchange(context.Background(), models.IdentityExchangeRequest{
		IdentityID:  "id-42",
		DisplayName: "J. Doe",
		ExchangeKey: "wrong",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(&mockSessionRepo{}, &mockAuditAppender{}, nil, zap.NewNop(), authConfig())

	resp, err := svc.Exchange(context.Background(), models.IdentityExchangeRequest{
		IdentityID: "id-42", DisplayName: "J. Doe", ExchangeKey: "shared_key",
	})
	require.NoError(t, err)

	other := authConfig()
	other.TokenSecret = "another_secret"
	foreign := NewAuthService(&mockSessionRepo{}, &mockAuditAppender{}, nil, zap.NewNop(), other)
	_, err = foreign.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	sessions := &mockSessionRepo{tokens: map[string]models.RefreshToken{
		"old-token": {
			ID:         "rt1",
			IdentityID: "id-42",
			Token:      "old-token",
			ExpiresAt:  time.Now().UTC().Add(time.Hour),
		},
	}}
	svc := NewAuthService(sessions, &mockAuditAppender{}, nil, zap.NewNop(), authConfig())

	resp, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Contains(t, sessions.revoked, "rt1")

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "id-42", claims.IdentityID)
	// Refreshed sessions never carry the superuser flag forward.
	assert.False(t, claims.Superuser)
}

func TestAuthServiceRefreshRejectsExpiredOrRevoked(t *testing.T) {
	sessions := &mockSessionRepo{tokens: map[string]models.RefreshToken{
		"expired": {ID: "rt1", IdentityID: "id-42", Token: "expired", ExpiresAt: time.Now().UTC().Add(-time.Minute)},
		"revoked": {ID: "rt2", IdentityID: "id-42", Token: "revoked", ExpiresAt: time.Now().UTC().Add(time.Hour), Revoked: true},
	}}
	svc := NewAuthService(sessions, &mockAuditAppender{}, nil, zap.NewNop(), authConfig())

	for _, token := range []string{"expired", "revoked", "unknown"} {
		_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: token})
		require.Error(t, err, token)
		appErr := appErrors.FromError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	}
}

func TestAuthServiceBreakGlassLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	sessions := &mockSessionRepo{accounts: map[string]models.BreakGlassAccount{
		"admin": {ID: "bg1", Username: "admin", PasswordHash: string(hash), IdentityID: "id-admin", Active: true},
	}}
	audits := &mockAuditAppender{}
	svc := NewAuthService(sessions, audits, nil, zap.NewNop(), authConfig())

	resp, err := svc.BreakGlassLogin(context.Background(), models.BreakGlassLoginRequest{
		Username: "admin", Password: "correct horse",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "id-admin", claims.IdentityID)
	assert.True(t, claims.Superuser)
	require.Len(t, audits.events, 1)
	assert.Equal(t, models.AuditActionLogin, audits.events[0].Action)
}

func TestAuthServiceBreakGlassLoginBadCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	sessions := &mockSessionRepo{accounts: map[string]models.BreakGlassAccount{
		"admin": {ID: "bg1", Username: "admin", PasswordHash: string(hash), IdentityID: "id-admin"},
	}}
	svc := NewAuthService(sessions, &mockAuditAppender{}, nil, zap.NewNop(), authConfig())

	for _, attempt := range []models.BreakGlassLoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "ghost", Password: "correct horse"},
	} {
		_, err := svc.BreakGlassLogin(context.Background(), attempt)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	}
}
