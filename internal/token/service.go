// Package token keeps the backend's view of this device's active push
// token consistent with the local one, and tracks where the device
// sits in the permission/registration lifecycle.
package token

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/config"
	"github.com/sitepulse/notify/internal/devicestore"
	"github.com/sitepulse/notify/internal/domain"
	"github.com/sitepulse/notify/internal/push"
)

// State is a position in the per-device registration state machine.
type State string

const (
	StateUnknown          State = "unknown"
	StateUnsupported      State = "unsupported"
	StateSupported        State = "supported"
	StateDenied           State = "denied"
	StateGranted          State = "granted"
	StateTokenAcquired    State = "token_acquired"
	StateTokenFetchFailed State = "token_fetch_failed"
	StateRegistered       State = "registered"
	StateRegisterFailed   State = "register_failed"
)

// registrationTTL is how long a successful registration is considered
// fresh. After it lapses, the next app-foreground transition re-runs
// fetch and register.
const registrationTTL = 24 * time.Hour

const freshnessKey = "registration"

// BackendAPI is the push-token slice of the backend contract.
type BackendAPI interface {
	RegisterPushToken(ctx context.Context, rec domain.PushTokenRecord) error
	DeactivatePushTokens(ctx context.Context, userID string) error
}

// KV is the device key-value area the service caches its token in.
type KV interface {
	PutKV(ctx context.Context, key string, v interface{}) error
	GetKV(ctx context.Context, key string, v interface{}) bool
	DeleteKV(ctx context.Context, key string) error
}

// cachedToken is the persisted token cache entry.
type cachedToken struct {
	Token      string    `json:"token"`
	Registered bool      `json:"registered"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service runs the registration state machine. Terminal failure states
// are reported, not retried, except on explicit user action or an
// app-foreground transition.
type Service struct {
	provider push.CapabilityProvider
	api      BackendAPI
	kv       KV
	device   config.DeviceConfig
	logger   *zap.Logger
	fresh    *gocache.Cache

	mu     sync.Mutex
	state  State
	token  string
	reason string
}

// NewService creates the token service, restoring any cached token
// from the device key-value area.
func NewService(provider push.CapabilityProvider, api BackendAPI, kv KV, device config.DeviceConfig, logger *zap.Logger) *Service {
	s := &Service{
		provider: provider,
		api:      api,
		kv:       kv,
		device:   device,
		logger:   logger,
		fresh:    gocache.New(registrationTTL, time.Hour),
		state:    StateUnknown,
	}

	var cached cachedToken
	if s.kv.GetKV(context.Background(), devicestore.KeyPushToken, &cached) && cached.Token != "" {
		s.token = cached.Token
		if cached.Registered {
			s.state = StateRegistered
		} else {
			s.state = StateTokenAcquired
		}
	}
	return s
}

// Initialize runs the full state machine once and reports whether the
// end state is REGISTERED. When showDialog is set and permission is
// undetermined, the provider may surface a native prompt.
func (s *Service) Initialize(ctx context.Context, user *domain.User, showDialog bool) bool {
	if err := s.provider.CheckSupport(ctx); err != nil {
		s.setState(StateUnsupported, err.Error())
		s.logger.Info("push unsupported on this device", zap.String("reason", err.Error()))
		return false
	}
	s.setState(StateSupported, "")

	if err := s.provider.RequestPermission(ctx, showDialog); err != nil {
		s.setState(StateDenied, err.Error())
		s.logger.Info("notification permission denied")
		return false
	}
	s.setState(StateGranted, "")

	return s.fetchAndRegister(ctx, user)
}

// ForceReregister re-runs fetch and register regardless of current
// state. Used after detecting staleness or on explicit user retry.
func (s *Service) ForceReregister(ctx context.Context, user *domain.User) bool {
	return s.fetchAndRegister(ctx, user)
}

// HandleAppForeground re-registers when the last successful
// registration has gone stale or previously failed. Returns whether
// the device ends up registered.
func (s *Service) HandleAppForeground(ctx context.Context, user *domain.User) bool {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == StateUnsupported || state == StateDenied {
		return false
	}

	if state == StateRegistered {
		if _, fresh := s.fresh.Get(freshnessKey); fresh {
			return true
		}
	}
	return s.fetchAndRegister(ctx, user)
}

// Unregister deactivates this user's tokens with the backend and
// clears the local cache. Called on logout.
func (s *Service) Unregister(ctx context.Context, userID string) bool {
	ok := true
	if err := s.api.DeactivatePushTokens(ctx, userID); err != nil {
		s.logger.Warn("backend token deactivation failed", zap.Error(err))
		ok = false
	}

	if err := s.kv.DeleteKV(ctx, devicestore.KeyPushToken); err != nil {
		s.logger.Warn("clearing cached token failed", zap.Error(err))
	}
	s.fresh.Delete(freshnessKey)

	s.mu.Lock()
	s.token = ""
	s.state = StateUnknown
	s.mu.Unlock()
	return ok
}

// HasPermissions reports whether permission was granted this session.
// Pure read, no I/O.
func (s *Service) HasPermissions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateGranted, StateTokenAcquired, StateTokenFetchFailed, StateRegistered, StateRegisterFailed:
		return true
	}
	return false
}

// IsTokenRegistered reports whether the backend holds this device's
// current token. Pure read, no I/O.
func (s *Service) IsTokenRegistered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRegistered
}

// CurrentToken returns the cached token, or "" when none was acquired.
// Pure read, no I/O.
func (s *Service) CurrentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// CurrentState returns the state machine position and, for failure
// states, the reported reason. Callers render different guidance for
// denied versus fetch-failed.
func (s *Service) CurrentState() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.reason
}

// fetchAndRegister runs the token fetch and the backend registration.
// A registration failure does not roll back the fetched token: it
// stays cached for the next retry.
func (s *Service) fetchAndRegister(ctx context.Context, user *domain.User) bool {
	tok, err := s.provider.FetchToken(ctx)
	if err != nil {
		s.setState(StateTokenFetchFailed, err.Error())
		s.logger.Warn("push token fetch failed", zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.token = tok
	s.state = StateTokenAcquired
	s.reason = ""
	s.mu.Unlock()

	if err := s.persistToken(ctx, tok, false); err != nil {
		s.logger.Warn("caching push token failed", zap.Error(err))
	}

	rec := domain.PushTokenRecord{
		Token:      tok,
		UserID:     user.ID,
		UserType:   user.UserType,
		Platform:   s.device.Platform,
		DeviceID:   s.device.DeviceID,
		AppVersion: s.device.AppVersion,
		IsActive:   true,
	}
	if err := s.api.RegisterPushToken(ctx, rec); err != nil {
		s.setState(StateRegisterFailed, err.Error())
		s.logger.Warn("backend token registration failed, token cached for retry",
			zap.Error(errors.Join(domain.ErrRegisterFailed, err)))
		return false
	}

	s.setState(StateRegistered, "")
	s.fresh.Set(freshnessKey, time.Now(), gocache.DefaultExpiration)
	if err := s.persistToken(ctx, tok, true); err != nil {
		s.logger.Warn("caching registered token failed", zap.Error(err))
	}

	s.logger.Info("push token registered",
		zap.String("device_id", s.device.DeviceID),
		zap.String("user_id", user.ID))
	return true
}

func (s *Service) persistToken(ctx context.Context, tok string, registered bool) error {
	return s.kv.PutKV(ctx, devicestore.KeyPushToken, cachedToken{
		Token:      tok,
		Registered: registered,
		UpdatedAt:  time.Now(),
	})
}

func (s *Service) setState(state State, reason string) {
	s.mu.Lock()
	s.state = state
	s.reason = reason
	s.mu.Unlock()
}
