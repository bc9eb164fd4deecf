package devicestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "device.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, ts time.Time) domain.NotificationRecord {
	return domain.NotificationRecord{
		ID:        id,
		Title:     "📦 Materials Imported",
		Body:      "Dana added materials to Riverside Tower",
		Data:      map[string]string{"projectId": "P1"},
		Timestamp: ts,
		Source:    domain.SourceLocal,
	}
}

func TestAddKeepsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(ctx, record(id, base.Add(time.Duration(i)*time.Second))))
	}

	list := s.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "a", list[2].ID)
}

func TestListReturnsSnapshotCopy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, record("a", time.Now())))

	list := s.List(ctx)
	list[0].IsRead = true
	list[0].Title = "mutated"

	again := s.List(ctx)
	assert.False(t, again[0].IsRead)
	assert.Equal(t, "📦 Materials Imported", again[0].Title)
}

func TestMarkReadAndMarkAllRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, record("a", time.Now())))
	require.NoError(t, s.Add(ctx, record("b", time.Now())))

	require.NoError(t, s.MarkRead(ctx, "a"))
	// Absent id is a no-op, not an error.
	require.NoError(t, s.MarkRead(ctx, "missing"))

	var readCount int
	for _, rec := range s.List(ctx) {
		if rec.IsRead {
			readCount++
		}
	}
	assert.Equal(t, 1, readCount)

	require.NoError(t, s.MarkAllRead(ctx))
	for _, rec := range s.List(ctx) {
		assert.True(t, rec.IsRead)
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, record("a", time.Now())))
	require.NoError(t, s.Add(ctx, record("b", time.Now())))

	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Remove(ctx, "a"))
	assert.Len(t, s.List(ctx), 1)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.List(ctx))
}

func TestSubscribeFiresAfterEveryMutation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var fired int
	unsubscribe := s.Subscribe(func() { fired++ })

	require.NoError(t, s.Add(ctx, record("a", time.Now())))
	require.NoError(t, s.MarkRead(ctx, "a"))
	require.NoError(t, s.MarkAllRead(ctx))
	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 5, fired)

	unsubscribe()
	require.NoError(t, s.Add(ctx, record("b", time.Now())))
	assert.Equal(t, 5, fired)
}

func TestSubscriberMayCallBackIntoStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var seen int
	s.Subscribe(func() { seen = len(s.List(ctx)) })

	require.NoError(t, s.Add(ctx, record("a", time.Now())))
	assert.Equal(t, 1, seen)
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	ctx := context.Background()

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, record("a", time.Now())))
	require.NoError(t, s.Add(ctx, record("b", time.Now())))
	require.NoError(t, s.MarkRead(ctx, "a"))
	require.NoError(t, s.Close())

	s2, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer s2.Close()

	list := s2.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.True(t, list[1].IsRead)
	assert.Equal(t, "P1", list[1].Data["projectId"])
}

func TestKVRoundTripAndCorruption(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type entry struct {
		Token string `json:"token"`
	}
	require.NoError(t, s.PutKV(ctx, KeyPushToken, entry{Token: "ExponentPushToken[abc]"}))

	var got entry
	require.True(t, s.GetKV(ctx, KeyPushToken, &got))
	assert.Equal(t, "ExponentPushToken[abc]", got.Token)

	// Corrupted JSON reads as absent, never as an error.
	_, err := s.db.Exec(`UPDATE device_kv SET value = 'not-json' WHERE key = ?`, KeyPushToken)
	require.NoError(t, err)
	assert.False(t, s.GetKV(ctx, KeyPushToken, &got))

	require.NoError(t, s.DeleteKV(ctx, KeyPushToken))
	require.NoError(t, s.DeleteKV(ctx, KeyPushToken))
	assert.False(t, s.GetKV(ctx, KeyPushToken, &got))
}
