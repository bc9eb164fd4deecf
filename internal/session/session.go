// Package session resolves the viewer identity this subsystem needs
// from the device session blob. The blob is written by the app's login
// flow; here it is consumed read-only (except for logout's clear).
package session

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/devicestore"
	"github.com/sitepulse/notify/internal/domain"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims are the identity claims carried by a SitePulse access token.
type Claims struct {
	UserID     string          `json:"user_id"`
	Name       string          `json:"name,omitempty"`
	ClientID   string          `json:"client_id"`
	UserType   domain.UserType `json:"user_type"`
	ProjectIDs []string        `json:"project_ids,omitempty"`
	jwt.RegisteredClaims
}

// blob is the persisted session shape. Either the user object or the
// access token (or both) may be present.
type blob struct {
	User        *domain.User `json:"user,omitempty"`
	AccessToken string       `json:"access_token,omitempty"`
}

// KV is the device key-value area the session blob lives in.
type KV interface {
	GetKV(ctx context.Context, key string, v interface{}) bool
	DeleteKV(ctx context.Context, key string) error
}

// Manager reads and clears the device session.
type Manager struct {
	kv     KV
	logger *zap.Logger
}

// NewManager creates a session manager.
func NewManager(kv KV, logger *zap.Logger) *Manager {
	return &Manager{kv: kv, logger: logger}
}

// CurrentUser resolves the viewer identity. It prefers the stored user
// object and falls back to the access token's claims. Reports
// domain.ErrNoSession when neither yields an identity.
func (m *Manager) CurrentUser(ctx context.Context) (*domain.User, error) {
	var b blob
	if !m.kv.GetKV(ctx, devicestore.KeyUser, &b) {
		return nil, domain.ErrNoSession
	}

	if b.User != nil && b.User.ID != "" {
		return b.User, nil
	}

	if b.AccessToken != "" {
		claims, err := parseClaims(b.AccessToken)
		if err != nil {
			m.logger.Warn("session token unreadable", zap.Error(err))
			return nil, domain.ErrNoSession
		}
		return &domain.User{
			ID:         claims.UserID,
			Name:       claims.Name,
			ClientID:   claims.ClientID,
			UserType:   claims.UserType,
			ProjectIDs: claims.ProjectIDs,
		}, nil
	}

	return nil, domain.ErrNoSession
}

// AccessToken returns the stored bearer token, or "" when absent.
func (m *Manager) AccessToken(ctx context.Context) string {
	var b blob
	if !m.kv.GetKV(ctx, devicestore.KeyUser, &b) {
		return ""
	}
	return b.AccessToken
}

// Clear removes the session blob. Called on logout.
func (m *Manager) Clear(ctx context.Context) error {
	return m.kv.DeleteKV(ctx, devicestore.KeyUser)
}

// parseClaims decodes the token's claims without signature
// verification. The signing secret lives server-side; the device only
// needs the identity its own backend issued it.
func parseClaims(tokenString string) (*Claims, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
