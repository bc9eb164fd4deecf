package devicestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Well-known device keys.
const (
	KeyPushToken = "push_token_cache"
	KeyUser      = "user"
)

// PutKV stores a JSON-encoded value under key.
func (s *Store) PutKV(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data))
	return err
}

// GetKV loads the value stored under key into v. A missing key or
// corrupted JSON both report false: stale device state is treated as
// no data, never as a fatal condition.
func (s *Store) GetKV(ctx context.Context, key string, v interface{}) bool {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM device_kv WHERE key = ?`, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("device kv read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("device kv entry corrupted, treating as absent",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// DeleteKV removes the entry under key. Idempotent.
func (s *Store) DeleteKV(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM device_kv WHERE key = ?`, key)
	return err
}
