package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/backend"
	"github.com/sitepulse/notify/internal/backendtest"
	"github.com/sitepulse/notify/internal/domain"
)

func newClientAndServer(t *testing.T) (*backend.Client, *backendtest.Server) {
	t.Helper()
	fake := backendtest.New(zap.NewNop())
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, "test-jwt", 5*time.Second, zap.NewNop()), fake
}

func TestLogActivityReturnsStoredRecord(t *testing.T) {
	client, _ := newClientAndServer(t)

	stored, err := client.LogActivity(context.Background(), domain.Activity{
		ClientID:     "C1",
		ProjectID:    "P1",
		StaffID:      "staff-1",
		StaffName:    "Priya",
		ActivityType: domain.ActivityMaterialAdded,
		Details:      "40 bags cement",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID, "backend assigns the id")
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, "C1", stored.ClientID)
	assert.Equal(t, domain.ActivityMaterialAdded, stored.ActivityType)
}

func TestListActivitiesScopedByClientNewestFirst(t *testing.T) {
	client, fake := newClientAndServer(t)

	for _, a := range []domain.Activity{
		{ClientID: "C1", ActivityType: domain.ActivityMaterialAdded},
		{ClientID: "C2", ActivityType: domain.ActivityLaborAdded},
		{ClientID: "C1", ActivityType: domain.ActivityStaffAdded},
	} {
		fake.SeedActivity(a)
	}

	activities, err := client.ListActivities(context.Background(), "C1", 50)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, domain.ActivityStaffAdded, activities[0].ActivityType)
	assert.Equal(t, domain.ActivityMaterialAdded, activities[1].ActivityType)
}

func TestListActivitiesHonorsLimit(t *testing.T) {
	client, fake := newClientAndServer(t)
	for i := 0; i < 5; i++ {
		fake.SeedActivity(domain.Activity{ClientID: "C1", ActivityType: domain.ActivityLaborAdded})
	}

	activities, err := client.ListActivities(context.Background(), "C1", 3)
	require.NoError(t, err)
	assert.Len(t, activities, 3)
}

func TestListActivitiesRequiresClientID(t *testing.T) {
	client, _ := newClientAndServer(t)
	_, err := client.ListActivities(context.Background(), "", 50)
	assert.Error(t, err)
}

func TestSendNotificationRecordedByBackend(t *testing.T) {
	client, fake := newClientAndServer(t)

	send := domain.NotificationSend{
		ClientID:       "C1",
		ProjectID:      "P1",
		Title:          "📦 Materials Imported",
		Body:           "Priya added materials to Tower A",
		RecipientType:  domain.RecipientStaff,
		ExcludeStaffID: "staff-1",
		Data:           map[string]string{"projectId": "P1"},
	}
	require.NoError(t, client.SendNotification(context.Background(), send))

	sends := fake.Sends()
	require.Len(t, sends, 1)
	assert.Equal(t, send, sends[0])
}

func TestRecipientsResolvesSeededUsers(t *testing.T) {
	client, fake := newClientAndServer(t)
	fake.AddUser("admin-1", "Asha", domain.UserTypeAdmin)
	fake.AddUser("staff-1", "Priya", domain.UserTypeStaff)

	recipients, err := client.Recipients(context.Background(), "C1")
	require.NoError(t, err)
	assert.Len(t, recipients, 2)
}

func TestErrorEnvelopeSurfacesAsError(t *testing.T) {
	client, fake := newClientAndServer(t)
	fake.SetFailing(true)

	_, err := client.ListActivities(context.Background(), "C1", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClientTimesOutOnStalledBackend(t *testing.T) {
	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer stalled.Close()

	client := backend.NewClient(stalled.URL, "", 50*time.Millisecond, zap.NewNop())
	_, err := client.ListActivities(context.Background(), "C1", 50)
	assert.Error(t, err)
}

func TestRegisterSupersedesTokenPerDevice(t *testing.T) {
	client, _ := newClientAndServer(t)
	ctx := context.Background()

	register := func(token, deviceID string) {
		t.Helper()
		require.NoError(t, client.RegisterPushToken(ctx, domain.PushTokenRecord{
			Token:    token,
			UserID:   "staff-1",
			UserType: domain.UserTypeStaff,
			Platform: "android",
			DeviceID: deviceID,
		}))
	}

	register("ExponentPushToken[old]", "device-1")
	register("ExponentPushToken[new]", "device-1")

	tokens, err := client.ListPushTokens(ctx, "staff-1")
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	active := activeTokens(tokens)
	require.Len(t, active, 1, "one active token per device")
	assert.Equal(t, "ExponentPushToken[new]", active[0].Token)
}

func TestTwoDevicesBothStayActiveUntilDeactivation(t *testing.T) {
	client, _ := newClientAndServer(t)
	ctx := context.Background()

	for _, d := range []struct{ token, device string }{
		{"ExponentPushToken[phone]", "device-phone"},
		{"ExponentPushToken[tablet]", "device-tablet"},
	} {
		require.NoError(t, client.RegisterPushToken(ctx, domain.PushTokenRecord{
			Token:    d.token,
			UserID:   "staff-1",
			UserType: domain.UserTypeStaff,
			Platform: "ios",
			DeviceID: d.device,
		}))
	}

	tokens, err := client.ListPushTokens(ctx, "staff-1")
	require.NoError(t, err)
	assert.Len(t, activeTokens(tokens), 2)

	require.NoError(t, client.DeactivatePushTokens(ctx, "staff-1"))

	tokens, err = client.ListPushTokens(ctx, "staff-1")
	require.NoError(t, err)
	assert.Empty(t, activeTokens(tokens), "logout deactivates every device")
	assert.Len(t, tokens, 2, "deactivated tokens retained")
}

func TestRegisterRejectsMalformedToken(t *testing.T) {
	client, _ := newClientAndServer(t)
	err := client.RegisterPushToken(context.Background(), domain.PushTokenRecord{
		Token:    "not-a-push-token",
		UserID:   "staff-1",
		DeviceID: "device-1",
	})
	assert.Error(t, err)
}

func activeTokens(tokens []domain.PushTokenRecord) []domain.PushTokenRecord {
	var active []domain.PushTokenRecord
	for _, tok := range tokens {
		if tok.IsActive {
			active = append(active, tok)
		}
	}
	return active
}
