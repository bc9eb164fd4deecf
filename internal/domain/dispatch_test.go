package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDispatch(api *fakeAPI, store *memStore, local *fakeDeliverer) *DispatchService {
	return NewDispatchService(api, store, local, zap.NewNop())
}

func validRequest() DispatchRequest {
	return DispatchRequest{
		ProjectID:     "P1",
		ClientID:      "C1",
		ActivityType:  ActivityMaterialAdded,
		StaffID:       "staff-7",
		StaffName:     "Dana",
		ProjectName:   "Riverside Tower",
		Details:       "40 bags of cement",
		RecipientType: RecipientAdmins,
	}
}

func TestDispatchRejectsUnaddressableRequestWithoutIO(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	svc := newDispatch(api, store, &fakeDeliverer{})

	req := validRequest()
	req.ProjectID = ""
	req.ClientID = ""

	ok := svc.SendProjectNotification(context.Background(), req)
	assert.False(t, ok)
	assert.Zero(t, api.calls, "invalid request must not reach the network")
	assert.Empty(t, store.List(context.Background()))
}

func TestDispatchRejectsMissingActivityType(t *testing.T) {
	api := &fakeAPI{}
	svc := newDispatch(api, &memStore{}, &fakeDeliverer{})

	req := validRequest()
	req.ActivityType = ""

	assert.False(t, svc.SendProjectNotification(context.Background(), req))
	assert.Zero(t, api.calls)
}

func TestDispatchSuccessDoesNotEchoLocally(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	svc := newDispatch(api, store, &fakeDeliverer{})

	ok := svc.SendProjectNotification(context.Background(), validRequest())
	require.True(t, ok)

	// Recipients are handled server-side; the sender keeps no copy.
	assert.Empty(t, store.List(context.Background()))

	require.Len(t, api.sends, 1)
	send := api.sends[0]
	assert.Equal(t, "📦 Materials Imported", send.Title)
	assert.Equal(t, "Dana added materials to Riverside Tower: 40 bags of cement", send.Body)
	assert.Equal(t, "staff-7", send.ExcludeStaffID)
	assert.Equal(t, "act-logged", send.Data["activityId"])
	assert.Equal(t, "/projects/P1", send.Data["route"])
}

func TestDispatchBackendFailureWritesLocalFallback(t *testing.T) {
	api := &fakeAPI{logErr: errNetwork}
	store := &memStore{}
	svc := newDispatch(api, store, &fakeDeliverer{})

	ok := svc.SendProjectNotification(context.Background(), validRequest())
	assert.False(t, ok)

	list := store.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, SourceLocal, list[0].Source)
	assert.Equal(t, "📦 Materials Imported", list[0].Title)
	assert.Equal(t, "P1", list[0].Data["projectId"])
	assert.NotEmpty(t, list[0].ID)
}

func TestDispatchSendFailureAfterLogStillFallsBack(t *testing.T) {
	api := &fakeAPI{sendErr: errNetwork}
	store := &memStore{}
	svc := newDispatch(api, store, &fakeDeliverer{})

	ok := svc.SendProjectNotification(context.Background(), validRequest())
	assert.False(t, ok)
	require.Len(t, store.List(context.Background()), 1)
}

func TestDispatchNeverPanicsOnMalformedInput(t *testing.T) {
	svc := newDispatch(&fakeAPI{}, &memStore{}, &fakeDeliverer{})
	ctx := context.Background()

	malformed := []DispatchRequest{
		{},
		{ActivityType: "???", ClientID: "C1"},
		{ActivityType: ActivityAdminUpdate, ClientID: "C1", Details: string(make([]byte, 1<<16))},
	}
	for _, req := range malformed {
		assert.NotPanics(t, func() { svc.SendProjectNotification(ctx, req) })
	}
}

func TestDispatchUnknownActivityTypeUsesGenericTemplate(t *testing.T) {
	api := &fakeAPI{}
	svc := newDispatch(api, &memStore{}, &fakeDeliverer{})

	req := validRequest()
	req.ActivityType = "concrete_poured"

	require.True(t, svc.SendProjectNotification(context.Background(), req))
	require.Len(t, api.sends, 1)
	assert.Equal(t, "Activity Update", api.sends[0].Title)
}

func TestScheduleTestNotificationBypassesBackend(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	local := &fakeDeliverer{}
	svc := newDispatch(api, store, local)

	ok := svc.ScheduleTestNotification(context.Background(), "Test", "It works")
	require.True(t, ok)

	assert.Zero(t, api.calls)
	assert.Equal(t, []string{"Test"}, local.delivered)

	list := store.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, SourceLocal, list[0].Source)
	assert.Equal(t, "diagnostic", list[0].Data["category"])
}

func TestScheduleTestNotificationToleratesDeliveryFailure(t *testing.T) {
	store := &memStore{}
	svc := newDispatch(&fakeAPI{}, store, &fakeDeliverer{err: errNetwork})

	// Presentation failure is logged; the record is still written.
	assert.True(t, svc.ScheduleTestNotification(context.Background(), "Test", "body"))
	assert.Len(t, store.List(context.Background()), 1)
}
