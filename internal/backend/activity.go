package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sitepulse/notify/internal/domain"
)

// LogActivity records a domain activity event with the backend and
// returns the stored record, including its server-assigned id.
func (c *Client) LogActivity(ctx context.Context, act domain.Activity) (*domain.Activity, error) {
	var stored domain.Activity
	if err := c.do(ctx, http.MethodPost, "/api/activity", act, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListActivities fetches recent activities for a client, newest first.
func (c *Client) ListActivities(ctx context.Context, clientID string, limit int) ([]domain.Activity, error) {
	if clientID == "" {
		return nil, fmt.Errorf("clientID is required")
	}
	path := fmt.Sprintf("/api/activity?clientId=%s&limit=%d", url.QueryEscape(clientID), limit)

	var activities []domain.Activity
	if err := c.do(ctx, http.MethodGet, path, nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Recipient is one resolved notification target.
type Recipient struct {
	UserID   string          `json:"user_id"`
	Name     string          `json:"name"`
	UserType domain.UserType `json:"user_type"`
}

// SendNotification asks the backend to deliver a notification to the
// recipients it resolves for the client/project. Self-suppression of
// the acting user is handled server-side via ExcludeStaffID.
func (c *Client) SendNotification(ctx context.Context, send domain.NotificationSend) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/send", send, nil)
}

// Recipients resolves who would receive a notification for a client.
func (c *Client) Recipients(ctx context.Context, clientID string) ([]Recipient, error) {
	if clientID == "" {
		return nil, fmt.Errorf("clientID is required")
	}
	path := "/api/notifications/recipients?clientId=" + url.QueryEscape(clientID)

	var recipients []Recipient
	if err := c.do(ctx, http.MethodGet, path, nil, &recipients); err != nil {
		return nil, err
	}
	return recipients, nil
}
