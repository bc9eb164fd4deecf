package devicestore

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/domain"
)

// notificationRow is the persisted shape of a notification record.
type notificationRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Data      string    `db:"data"`
	Timestamp time.Time `db:"timestamp"`
	IsRead    bool      `db:"is_read"`
	Source    string    `db:"source"`
}

func (r notificationRow) toRecord() domain.NotificationRecord {
	data := map[string]string{}
	// Corrupted payload JSON degrades to an empty map, not an error.
	_ = json.Unmarshal([]byte(r.Data), &data)

	return domain.NotificationRecord{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Data:      data,
		Timestamp: r.Timestamp,
		IsRead:    r.IsRead,
		Source:    domain.Source(r.Source),
	}
}

// loadRecords hydrates the in-memory list, most recent insert first.
func (s *Store) loadRecords(ctx context.Context) error {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, title, body, data, timestamp, is_read, source
		FROM notifications ORDER BY rowid DESC`); err != nil {
		return err
	}

	records := make([]domain.NotificationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// Add prepends a record to the list and persists it. No deduplication
// happens here; that is the dispatch and reconciliation layers' job.
// A persistence failure is logged and swallowed.
func (s *Store) Add(ctx context.Context, rec domain.NotificationRecord) error {
	s.mu.Lock()
	s.records = append([]domain.NotificationRecord{rec}, s.records...)
	s.mu.Unlock()

	data, err := json.Marshal(rec.Data)
	if err != nil {
		data = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO notifications (id, title, body, data, timestamp, is_read, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Body, string(data), rec.Timestamp.UTC(), rec.IsRead, string(rec.Source),
	)
	if err != nil {
		s.logger.Warn("notification persist failed, keeping in-memory copy",
			zap.String("id", rec.ID), zap.Error(err))
	}

	s.notify()
	return nil
}

// List returns a snapshot copy of the notification list, most recent
// first. Callers must not assume mutations to the returned slice are
// seen by the store.
func (s *Store) List(ctx context.Context) []domain.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.NotificationRecord, len(s.records))
	copy(out, s.records)
	return out
}

// MarkRead marks one record read. No-op if the id is absent.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	found := false
	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].IsRead = true
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return nil
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id); err != nil {
		s.logger.Warn("mark-read persist failed", zap.String("id", id), zap.Error(err))
	}

	s.notify()
	return nil
}

// MarkAllRead marks every record read.
func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	for i := range s.records {
		s.records[i].IsRead = true
	}
	s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1`); err != nil {
		s.logger.Warn("mark-all-read persist failed", zap.Error(err))
	}

	s.notify()
	return nil
}

// Remove deletes one record. No-op if the id is absent.
func (s *Store) Remove(ctx context.Context, id string) error {
	removed := false
	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if !removed {
		return nil
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ?`, id); err != nil {
		s.logger.Warn("remove persist failed", zap.String("id", id), zap.Error(err))
	}

	s.notify()
	return nil
}

// Clear empties the store. Used on logout and reset.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications`); err != nil {
		s.logger.Warn("clear persist failed", zap.Error(err))
	}

	s.notify()
	return nil
}

// Subscribe registers a listener invoked synchronously after every
// mutating operation's persistence attempt. The returned function
// unsubscribes it.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify invokes subscribers outside the lock so a callback may call
// back into the store.
func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
