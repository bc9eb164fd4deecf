// Package expo implements push.CapabilityProvider against the Expo
// push service HTTP API.
package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/domain"
)

const defaultTokenEndpoint = "https://exp.host/--/api/v2/push/getExpoPushToken"

// PermissionFunc answers whether notification permission is granted.
// On a real device the native layer owns the prompt; the embedding app
// injects its bridge here. The zero value grants silently, which is
// what development builds want.
type PermissionFunc func(ctx context.Context, showDialog bool) error

// Provider is the Expo implementation of push.CapabilityProvider.
type Provider struct {
	deviceID      string
	platform      string
	gatewayURL    string
	tokenEndpoint string
	permission    PermissionFunc
	httpClient    *http.Client
	logger        *zap.Logger

	mu    sync.Mutex
	token string
}

// Options configures a Provider.
type Options struct {
	DeviceID      string
	Platform      string
	GatewayURL    string
	TokenEndpoint string
	Permission    PermissionFunc
	HTTPClient    *http.Client
}

// New creates an Expo provider.
func New(opts Options, logger *zap.Logger) *Provider {
	if opts.TokenEndpoint == "" {
		opts.TokenEndpoint = defaultTokenEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{
		deviceID:      opts.DeviceID,
		platform:      opts.Platform,
		gatewayURL:    strings.TrimRight(opts.GatewayURL, "/"),
		tokenEndpoint: opts.TokenEndpoint,
		permission:    opts.Permission,
		httpClient:    opts.HTTPClient,
		logger:        logger,
	}
}

// CheckSupport verifies the runtime can receive push notifications: a
// device identity must exist (emulators without one cannot register)
// and the platform must be one Expo routes to.
func (p *Provider) CheckSupport(ctx context.Context) error {
	if p.deviceID == "" {
		return fmt.Errorf("%w: no device identity", domain.ErrDeviceUnsupported)
	}
	if p.platform != "ios" && p.platform != "android" {
		return fmt.Errorf("%w: platform %q", domain.ErrDeviceUnsupported, p.platform)
	}
	return nil
}

// RequestPermission consults the injected native bridge, if any.
func (p *Provider) RequestPermission(ctx context.Context, showDialog bool) error {
	if p.permission == nil {
		return nil
	}
	return p.permission(ctx, showDialog)
}

// FetchToken obtains an Expo push token for this device and remembers
// it for local delivery.
func (p *Provider) FetchToken(ctx context.Context) (string, error) {
	reqBody := map[string]string{
		"deviceId": p.deviceID,
		"type":     p.platform,
	}

	var result struct {
		Data struct {
			ExpoPushToken string `json:"expoPushToken"`
		} `json:"data"`
	}
	if err := p.post(ctx, p.tokenEndpoint, reqBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenFetchFailed, err)
	}

	token := result.Data.ExpoPushToken
	if !domain.ValidPushToken(token) {
		return "", fmt.Errorf("%w: malformed token %q", domain.ErrTokenFetchFailed, token)
	}

	p.Prime(token)
	return token, nil
}

// Prime seeds the provider with a previously cached token so local
// delivery works before (or without) a fresh fetch.
func (p *Provider) Prime(token string) {
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
}

// DeliverLocal presents a notification on this device only, by
// addressing a push message to the device's own token.
func (p *Provider) DeliverLocal(ctx context.Context, title, body string, data map[string]string) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token == "" {
		return fmt.Errorf("no push token available for local delivery")
	}

	msg := map[string]interface{}{
		"to":    token,
		"title": title,
		"body":  body,
		"data":  data,
		"sound": "default",
	}

	var result struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := p.post(ctx, p.gatewayURL, msg, &result); err != nil {
		return err
	}
	if result.Data.Status != "" && result.Data.Status != "ok" {
		return fmt.Errorf("push gateway rejected message: %s", result.Data.Status)
	}
	return nil
}

func (p *Provider) post(ctx context.Context, url string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
