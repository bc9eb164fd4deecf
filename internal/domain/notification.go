package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source tags where a notification record entered the system.
type Source string

const (
	SourceLocal   Source = "local"
	SourcePush    Source = "push"
	SourceBackend Source = "backend"
)

// mergeRank orders sources for deduplication. Once an activity has
// round-tripped through the backend, the backend copy is authoritative
// over the push payload or the local fallback.
func (s Source) mergeRank() int {
	switch s {
	case SourceBackend:
		return 3
	case SourcePush:
		return 2
	case SourceLocal:
		return 1
	}
	return 0
}

// Supersedes reports whether a record from this source wins a dedup
// conflict against one from other.
func (s Source) Supersedes(other Source) bool {
	return s.mergeRank() > other.mergeRank()
}

// NotificationRecord is a single entry in the device notification feed.
type NotificationRecord struct {
	ID        string            `json:"id" db:"id"`
	Title     string            `json:"title" db:"title"`
	Body      string            `json:"body" db:"body"`
	Data      map[string]string `json:"data"`
	Timestamp time.Time         `json:"timestamp" db:"timestamp"`
	IsRead    bool              `json:"is_read" db:"is_read"`
	Source    Source            `json:"source" db:"source"`
}

// NewRecordID generates a client-side record id: creation time plus a
// random suffix so two records created in the same millisecond stay
// distinct.
func NewRecordID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// DedupKey derives the identity used to collapse duplicates across
// sources. The backend activity id is preferred when the payload
// carries one; otherwise title, body and a one-minute timestamp bucket
// identify the event.
func (n *NotificationRecord) DedupKey() string {
	if id, ok := n.Data["activityId"]; ok && id != "" {
		return "activity:" + id
	}
	bucket := n.Timestamp.UTC().Truncate(time.Minute).Unix()
	return fmt.Sprintf("%s|%s|%d", n.Title, n.Body, bucket)
}

// ActorID returns the id of the user whose action produced this
// record, if the payload carries one.
func (n *NotificationRecord) ActorID() string {
	return n.Data["staffId"]
}

// ProjectID returns the project the record belongs to, if any.
func (n *NotificationRecord) ProjectID() string {
	return n.Data["projectId"]
}
