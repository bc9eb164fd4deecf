// Package app is the composition root: every service is constructed
// once here and passed down explicitly, with a defined lifecycle
// (start at app launch, reset on logout, tear down on close). There
// are no module-level singletons.
package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/backend"
	"github.com/sitepulse/notify/internal/config"
	"github.com/sitepulse/notify/internal/devicestore"
	"github.com/sitepulse/notify/internal/domain"
	"github.com/sitepulse/notify/internal/push"
	"github.com/sitepulse/notify/internal/push/expo"
	"github.com/sitepulse/notify/internal/session"
	"github.com/sitepulse/notify/internal/token"
)

// App wires the notification subsystem together.
type App struct {
	Logger   *zap.Logger
	Store    *devicestore.Store
	Backend  *backend.Client
	Provider push.CapabilityProvider
	Sessions *session.Manager
	Tokens   *token.Service
	Dispatch *domain.DispatchService
	Feed     *domain.FeedService

	cfg      *config.Config
	receiver *push.Receiver
	cancel   context.CancelFunc
}

// Bootstrap loads .env and configuration, builds a logger, and
// constructs the app. Convenience wrapper around New for embedding
// code that has no config of its own.
func Bootstrap() (*App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return New(cfg, logger)
}

// New constructs the subsystem from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := devicestore.Open(cfg.Device.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening device store: %w", err)
	}

	sessions := session.NewManager(store, logger)
	authToken := sessions.AccessToken(context.Background())

	api := backend.NewClient(cfg.Backend.BaseURL, authToken, cfg.Backend.HTTPTimeout, logger)

	provider := expo.New(expo.Options{
		DeviceID:   cfg.Device.DeviceID,
		Platform:   cfg.Device.Platform,
		GatewayURL: cfg.Push.GatewayURL,
	}, logger)

	tokens := token.NewService(provider, api, store, cfg.Device, logger)
	if cached := tokens.CurrentToken(); cached != "" {
		provider.Prime(cached)
	}

	return &App{
		Logger:   logger,
		Store:    store,
		Backend:  api,
		Provider: provider,
		Sessions: sessions,
		Tokens:   tokens,
		Dispatch: domain.NewDispatchService(api, store, provider, logger),
		Feed:     domain.NewFeedService(api, store, logger),
		cfg:      cfg,
		receiver: push.NewReceiver(cfg.Backend.StreamURL, authToken, store, logger),
	}, nil
}

// Start runs the token state machine for the current session and
// begins listening on the push stream. Without a session it is a
// logged no-op; the app calls Start again after login.
func (a *App) Start(ctx context.Context, showDialog bool) error {
	user, err := a.Sessions.CurrentUser(ctx)
	if err != nil {
		a.Logger.Info("no session on device, notification subsystem idle")
		return err
	}

	a.Tokens.Initialize(ctx, user, showDialog)

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.receiver.Run(runCtx)

	a.Logger.Info("notification subsystem started",
		zap.String("user_id", user.ID),
		zap.String("client_id", user.ClientID))
	return nil
}

// OnForeground re-checks registration staleness. The UI calls this on
// every app-foreground transition.
func (a *App) OnForeground(ctx context.Context) {
	user, err := a.Sessions.CurrentUser(ctx)
	if err != nil {
		return
	}
	a.Tokens.HandleAppForeground(ctx, user)
}

// Logout deactivates this user's push tokens, clears the notification
// store and drops the session.
func (a *App) Logout(ctx context.Context) {
	if user, err := a.Sessions.CurrentUser(ctx); err == nil {
		a.Tokens.Unregister(ctx, user.ID)
	}
	if err := a.Store.Clear(ctx); err != nil {
		a.Logger.Warn("clearing notification store failed", zap.Error(err))
	}
	if err := a.Sessions.Clear(ctx); err != nil {
		a.Logger.Warn("clearing session failed", zap.Error(err))
	}
}

// Close stops the push stream and releases the device store.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	err := a.Store.Close()
	_ = a.Logger.Sync()
	return err
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
