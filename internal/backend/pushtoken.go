package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sitepulse/notify/internal/domain"
)

// RegisterPushToken registers or refreshes a device push token. The
// backend keeps exactly one active token per (userId, deviceId);
// re-registration supersedes stale state.
func (c *Client) RegisterPushToken(ctx context.Context, rec domain.PushTokenRecord) error {
	return c.do(ctx, http.MethodPost, "/api/push-token", rec, nil)
}

// ListPushTokens lists tokens registered for a user, active and
// deactivated. Deactivated tokens are retained for audit.
func (c *Client) ListPushTokens(ctx context.Context, userID string) ([]domain.PushTokenRecord, error) {
	var tokens []domain.PushTokenRecord
	path := "/api/push-token?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeactivatePushTokens marks every token for the user inactive,
// across all of their devices.
func (c *Client) DeactivatePushTokens(ctx context.Context, userID string) error {
	path := "/api/push-token?userId=" + url.QueryEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
