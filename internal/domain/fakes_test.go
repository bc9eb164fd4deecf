package domain

import (
	"context"
	"errors"
	"sync"
)

// memStore is an in-memory DeviceStore for service tests.
type memStore struct {
	mu      sync.Mutex
	records []NotificationRecord
	addErr  error
}

func (m *memStore) Add(ctx context.Context, rec NotificationRecord) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.mu.Lock()
	m.records = append([]NotificationRecord{rec}, m.records...)
	m.mu.Unlock()
	return nil
}

func (m *memStore) List(ctx context.Context) []NotificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NotificationRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *memStore) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].IsRead = true
		}
	}
	return nil
}

func (m *memStore) MarkAllRead(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		m.records[i].IsRead = true
	}
	return nil
}

func (m *memStore) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
	return nil
}

func (m *memStore) Subscribe(fn func()) func() { return func() {} }

// fakeAPI records calls and fails on demand.
type fakeAPI struct {
	mu         sync.Mutex
	logErr     error
	sendErr    error
	listErr    error
	logged     []Activity
	sends      []NotificationSend
	activities []Activity
	calls      int
}

func (f *fakeAPI) LogActivity(ctx context.Context, act Activity) (*Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.logErr != nil {
		return nil, f.logErr
	}
	act.ID = "act-logged"
	f.logged = append(f.logged, act)
	return &act, nil
}

func (f *fakeAPI) ListActivities(ctx context.Context, clientID string, limit int) ([]Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.activities, nil
}

func (f *fakeAPI) SendNotification(ctx context.Context, send NotificationSend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sends = append(f.sends, send)
	return nil
}

// fakeDeliverer records local deliveries.
type fakeDeliverer struct {
	mu        sync.Mutex
	err       error
	delivered []string
}

func (f *fakeDeliverer) DeliverLocal(ctx context.Context, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, title)
	return nil
}

var errNetwork = errors.New("connection refused")
