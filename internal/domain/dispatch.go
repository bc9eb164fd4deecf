package domain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/notify/pkg/validator"
)

// RecipientType selects the audience the backend resolves for a send.
type RecipientType string

const (
	RecipientAdmins RecipientType = "admins"
	RecipientStaff  RecipientType = "staff"
)

// Activity is a backend activity record: one domain event logged
// against a client/project.
type Activity struct {
	ID           string       `json:"id,omitempty"`
	ClientID     string       `json:"client_id"`
	ProjectID    string       `json:"project_id,omitempty"`
	ProjectName  string       `json:"project_name,omitempty"`
	StaffID      string       `json:"staff_id,omitempty"`
	StaffName    string       `json:"staff_name,omitempty"`
	ActivityType ActivityType `json:"activity_type"`
	Details      string       `json:"details,omitempty"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
}

// NotificationSend is the payload for a backend notification delivery.
type NotificationSend struct {
	ClientID       string            `json:"client_id"`
	ProjectID      string            `json:"project_id,omitempty"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	RecipientType  RecipientType     `json:"recipient_type"`
	ExcludeStaffID string            `json:"exclude_staff_id,omitempty"`
}

// DeviceStore is the durable, ordered cache of notifications on this
// device. Mutations notify subscribers synchronously after the
// persistence attempt; List returns a snapshot copy.
type DeviceStore interface {
	Add(ctx context.Context, rec NotificationRecord) error
	List(ctx context.Context) []NotificationRecord
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Subscribe(fn func()) (unsubscribe func())
}

// ActivityAPI is the slice of the backend REST contract the dispatch
// and feed paths consume.
type ActivityAPI interface {
	LogActivity(ctx context.Context, act Activity) (*Activity, error)
	ListActivities(ctx context.Context, clientID string, limit int) ([]Activity, error)
	SendNotification(ctx context.Context, send NotificationSend) error
}

// LocalDeliverer presents an immediate device-local notification,
// bypassing the backend entirely.
type LocalDeliverer interface {
	DeliverLocal(ctx context.Context, title, body string, data map[string]string) error
}

// DispatchRequest announces a domain event for delivery to the
// relevant audience. Ephemeral; never persisted as-is.
type DispatchRequest struct {
	ProjectID     string
	ClientID      string
	ActivityType  ActivityType
	StaffID       string
	StaffName     string
	ProjectName   string
	Details       string
	RecipientType RecipientType
}

// Validate checks the request carries an activity type and a way to
// resolve an audience.
func (r *DispatchRequest) Validate() validator.ValidationErrors {
	var errs validator.ValidationErrors
	if r.ActivityType == "" {
		errs.Add("activity_type", "is required")
	}
	if r.ProjectID == "" && r.ClientID == "" {
		errs.Add("project_id", "either project_id or client_id is required")
	}
	return errs
}

// DispatchService is the single entry point feature code uses to
// announce domain events. Construction-site staff may be offline, so
// the contract is: never return an error, always leave a record —
// backend failure degrades to a source=local fallback in the device
// store rather than losing the audit trail.
type DispatchService struct {
	api    ActivityAPI
	store  DeviceStore
	local  LocalDeliverer
	logger *zap.Logger
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(api ActivityAPI, store DeviceStore, local LocalDeliverer, logger *zap.Logger) *DispatchService {
	return &DispatchService{
		api:    api,
		store:  store,
		local:  local,
		logger: logger,
	}
}

// SendProjectNotification logs the activity with the backend and asks
// it to deliver to the resolved recipients. It reports delivery
// success; on backend failure it writes a local fallback record so the
// acting user keeps a trace of their own action. It never panics and
// never surfaces an error to UI code.
func (s *DispatchService) SendProjectNotification(ctx context.Context, req DispatchRequest) bool {
	if errs := req.Validate(); errs.HasErrors() {
		s.logger.Warn("rejecting dispatch request", zap.String("reason", errs.Error()))
		return false
	}

	title := req.ActivityType.Title()
	body := req.ActivityType.FormatBody(req.StaffName, req.ProjectName, req.Details)

	act := Activity{
		ClientID:     req.ClientID,
		ProjectID:    req.ProjectID,
		ProjectName:  req.ProjectName,
		StaffID:      req.StaffID,
		StaffName:    req.StaffName,
		ActivityType: req.ActivityType,
		Details:      req.Details,
	}

	logged, err := s.api.LogActivity(ctx, act)
	if err == nil {
		send := NotificationSend{
			ClientID:       req.ClientID,
			ProjectID:      req.ProjectID,
			Title:          title,
			Body:           body,
			Data:           s.payloadData(req, logged.ID),
			RecipientType:  req.RecipientType,
			ExcludeStaffID: req.StaffID,
		}
		err = s.api.SendNotification(ctx, send)
	}

	if err != nil {
		// Recipients are notified server-side on success, so the sender
		// gets no local echo then. The local write is reserved for this
		// failure path.
		s.logger.Warn("backend delivery failed, writing local fallback",
			zap.String("activity_type", string(req.ActivityType)),
			zap.Error(err))
		s.writeFallback(ctx, req, title, body)
		return false
	}

	return true
}

// ScheduleTestNotification presents an immediate local-only
// notification and records it, bypassing the backend. Diagnostics use
// this to verify the device presentation path in isolation.
func (s *DispatchService) ScheduleTestNotification(ctx context.Context, title, body string) bool {
	data := map[string]string{"category": "diagnostic"}

	if err := s.local.DeliverLocal(ctx, title, body, data); err != nil {
		s.logger.Warn("local test delivery failed", zap.Error(err))
	}

	rec := NotificationRecord{
		ID:        NewRecordID(),
		Title:     title,
		Body:      body,
		Data:      data,
		Timestamp: time.Now(),
		Source:    SourceLocal,
	}
	if err := s.store.Add(ctx, rec); err != nil {
		s.logger.Warn("failed to record test notification", zap.Error(err))
		return false
	}
	return true
}

func (s *DispatchService) payloadData(req DispatchRequest, activityID string) map[string]string {
	data := map[string]string{
		"activityType": string(req.ActivityType),
		"category":     "activity",
		"action":       "open_project",
	}
	if activityID != "" {
		data["activityId"] = activityID
	}
	if req.ProjectID != "" {
		data["projectId"] = req.ProjectID
		data["route"] = "/projects/" + req.ProjectID
	}
	if req.StaffID != "" {
		data["staffId"] = req.StaffID
	}
	return data
}

func (s *DispatchService) writeFallback(ctx context.Context, req DispatchRequest, title, body string) {
	rec := NotificationRecord{
		ID:        NewRecordID(),
		Title:     title,
		Body:      body,
		Data:      s.payloadData(req, ""),
		Timestamp: time.Now(),
		Source:    SourceLocal,
	}
	if err := s.store.Add(ctx, rec); err != nil {
		s.logger.Error("failed to write fallback record", zap.Error(err))
	}
}
