package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the session principal carried in the access token. It is
// reconstructed from the verified token on every request and never persisted.
type JWTClaims struct {
	IdentityID  string   `json:"identity_id"`
	DisplayName string   `json:"display_name"`
	GroupIDs    []string `json:"group_ids,omitempty"`
	Superuser   bool     `json:"superuser,omitempty"`
	jwt.RegisteredClaims
}

// IdentityExchangeRequest carries an externally verified identity, posted by
// the OAuth callback shell after it has completed the provider exchange.
type IdentityExchangeRequest struct {
	IdentityID  string   `json:"identity_id" validate:"required"`
	DisplayName string   `json:"display_name" validate:"required"`
	GroupIDs    []string `json:"group_ids"`
	Superuser   bool     `json:"superuser"`
	ExchangeKey string   `json:"exchange_key" validate:"required"`
	IP          string   `json:"-"`
}

// BreakGlassLoginRequest is the local credential fallback used when the
// external identity provider is down.
type BreakGlassLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	IP       string `json:"-"`
}

// SessionResponse returns issued tokens.
type SessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshRequest exchanges a refresh token for a new session.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
}

// RefreshToken represents a persisted refresh token session.
type RefreshToken struct {
	ID         string     `db:"id" json:"id"`
	IdentityID string     `db:"identity_id" json:"identity_id"`
	Token      string     `db:"token" json:"token"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	Revoked    bool       `db:"revoked" json:"revoked"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress  string     `db:"ip_address" json:"ip_address"`
}

// BreakGlassAccount is a locally stored admin credential.
type BreakGlassAccount struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IdentityID   string    `db:"identity_id" json:"identity_id"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
