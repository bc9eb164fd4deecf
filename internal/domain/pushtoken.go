package domain

import (
	"strings"
	"time"
)

// UserType distinguishes the audiences a notification can address.
type UserType string

const (
	UserTypeAdmin  UserType = "admin"
	UserTypeStaff  UserType = "staff"
	UserTypeClient UserType = "client"
)

// PushTokenRecord is the backend's view of one device's push
// registration. Records are deactivated, never deleted, so the token
// history stays available for audit.
type PushTokenRecord struct {
	Token      string    `json:"token"`
	UserID     string    `json:"user_id"`
	UserType   UserType  `json:"user_type"`
	Platform   string    `json:"platform"`
	DeviceID   string    `json:"device_id"`
	AppVersion string    `json:"app_version"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// ValidPushToken reports whether a token matches the Expo push token
// wire format, e.g. "ExponentPushToken[xxxxxxxx]".
func ValidPushToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") && strings.HasSuffix(token, "]") &&
		len(token) > len("ExponentPushToken[]")
}
