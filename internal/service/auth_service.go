package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type sessionRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeIdentityTokens(ctx context.Context, identityID string) error
	FindBreakGlassAccount(ctx context.Context, username string) (*models.BreakGlassAccount, error)
}

type auditAppender interface {
	Append(ctx context.Context, event *models.AuditEvent) error
}

// AuthConfig defines configuration for session issuance.
type AuthConfig struct {
	TokenSecret   string
	TokenExpiry   time.Duration
	RefreshExpiry time.Duration
	Issuer        string
	// ExchangeKey authenticates the OAuth callback shell that posts verified
	// identities to the exchange endpoint.
	ExchangeKey string
}

// AuthService mints and verifies session tokens. Identity verification is
// delegated to the external OAuth exchange; this service only trusts
// identities handed over with the shared exchange key, plus the break-glass
// local credential path.
type AuthService struct {
	sessions  sessionRepository
	audits    auditAppender
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(sessions sessionRepository, audits auditAppender, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{sessions: sessions, audits: audits, validator: validate, logger: logger, config: config}
}

// Exchange issues a session for an externally verified identity.
func (s *AuthService) Exchange(ctx context.Context, req models.IdentityExchangeRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exchange payload")
	}
	if req.ExchangeKey != s.config.ExchangeKey {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid exchange key")
	}
	return s.issueSession(ctx, req.IdentityID, req.DisplayName, req.GroupIDs, req.Superuser, req.IP)
}

// BreakGlassLogin authenticates a locally stored admin credential, used when
// the external identity provider is unreachable.
func (s *AuthService) BreakGlassLogin(ctx context.Context, req models.BreakGlassLoginRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	account, err := s.sessions.FindBreakGlassAccount(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "credential store unavailable")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	if err := s.audits.Append(ctx, &models.AuditEvent{
		ActorID:   &account.ID,
		Action:    models.AuditActionLogin,
		Metadata:  []byte(`{"method":"break_glass"}`),
		IPAddress: req.IP,
	}); err != nil {
		s.logger.Warn("failed to record login audit event", zap.Error(err))
	}

	// Break-glass sessions are always superuser: the path exists precisely so
	// an operator can repair role data when the IdP is down.
	return s.issueSession(ctx, account.IdentityID, account.Username, nil, true, req.IP)
}

// Refresh exchanges a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}
	stored, err := s.sessions.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "session store unavailable")
	}
	if stored.Revoked || time.Now().UTC().After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}
	if err := s.sessions.RevokeRefreshToken(ctx, stored.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}
	// Groups and the superuser flag are not persisted with the refresh token;
	// a refreshed session carries the identity only and the resolver rebuilds
	// capabilities per request.
	return s.issueSession(ctx, stored.IdentityID, "", nil, false, req.IP)
}

// ValidateToken verifies a signed session token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) issueSession(ctx context.Context, identityID, displayName string, groupIDs []string, superuser bool, ip string) (*models.SessionResponse, error) {
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		IdentityID:  identityID,
		DisplayName: displayName,
		GroupIDs:    groupIDs,
		Superuser:   superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
			ID:        uuid.NewString(),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	refreshValue, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	refresh := &models.RefreshToken{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Token:      refreshValue,
		ExpiresAt:  now.Add(s.config.RefreshExpiry),
		CreatedAt:  now,
		IPAddress:  ip,
	}
	if err := s.sessions.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to persist refresh token")
	}

	return &models.SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:     now,
	}, nil
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
