package domain

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultFeedLimit bounds the backend activity pull. The backend
	// applies its own cap; this is the client's ask.
	DefaultFeedLimit = 50

	activityCacheTTL = 30 * time.Second
)

// FeedService reconciles the three notification sources — the device
// store (local and push records) and the backend recent-activity feed
// — into one ordered, de-duplicated list scoped to the viewer.
type FeedService struct {
	api    ActivityAPI
	store  DeviceStore
	cache  *gocache.Cache
	logger *zap.Logger
	limit  int
}

// NewFeedService creates a feed service. Backend activity pulls are
// cached briefly so a screen re-render does not re-hit the network.
func NewFeedService(api ActivityAPI, store DeviceStore, logger *zap.Logger) *FeedService {
	return &FeedService{
		api:    api,
		store:  store,
		cache:  gocache.New(activityCacheTTL, time.Minute),
		logger: logger,
		limit:  DefaultFeedLimit,
	}
}

// Feed returns the merged notification list for the viewer, most
// recent first, plus the unread count. A backend fetch failure
// degrades to the device-store view; it is logged, not surfaced.
func (s *FeedService) Feed(ctx context.Context, viewer *User) ([]NotificationRecord, int) {
	var records []NotificationRecord

	for _, act := range s.fetchActivities(ctx, viewer.ClientID) {
		records = append(records, normalizeActivity(act))
	}
	records = append(records, s.store.List(ctx)...)

	merged := mergeRecords(records)

	visible := make([]NotificationRecord, 0, len(merged))
	for _, rec := range merged {
		if actor := rec.ActorID(); actor != "" && actor == viewer.ID {
			continue
		}
		if !viewer.CanSeeProject(rec.ProjectID()) {
			continue
		}
		visible = append(visible, rec)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Timestamp.After(visible[j].Timestamp)
	})

	unread := 0
	for _, rec := range visible {
		if !rec.IsRead {
			unread++
		}
	}
	return visible, unread
}

// Invalidate drops the cached backend pull for a client, forcing the
// next Feed call to refetch.
func (s *FeedService) Invalidate(clientID string) {
	s.cache.Delete("activities:" + clientID)
}

func (s *FeedService) fetchActivities(ctx context.Context, clientID string) []Activity {
	key := "activities:" + clientID
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]Activity)
	}

	activities, err := s.api.ListActivities(ctx, clientID, s.limit)
	if err != nil {
		s.logger.Warn("activity fetch failed, feed degrades to device store",
			zap.String("client_id", clientID), zap.Error(err))
		return nil
	}

	s.cache.Set(key, activities, gocache.DefaultExpiration)
	return activities
}

// normalizeActivity converts a backend activity record into the
// notification shape the feed renders.
func normalizeActivity(act Activity) NotificationRecord {
	data := map[string]string{
		"activityId":   act.ID,
		"activityType": string(act.ActivityType),
		"category":     "activity",
	}
	if act.ProjectID != "" {
		data["projectId"] = act.ProjectID
		data["route"] = "/projects/" + act.ProjectID
	}
	if act.StaffID != "" {
		data["staffId"] = act.StaffID
	}

	return NotificationRecord{
		ID:        "activity-" + act.ID,
		Title:     act.ActivityType.Title(),
		Body:      act.ActivityType.FormatBody(act.StaffName, act.ProjectName, act.Details),
		Data:      data,
		Timestamp: act.CreatedAt,
		Source:    SourceBackend,
	}
}

// mergeRecords groups records by dedup key and keeps one per group,
// preferring backend over push over local. Read state survives the
// merge: if any duplicate was read, the winner is read.
func mergeRecords(records []NotificationRecord) []NotificationRecord {
	byKey := make(map[string]NotificationRecord, len(records))
	order := make([]string, 0, len(records))

	for _, rec := range records {
		key := rec.DedupKey()
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = rec
			order = append(order, key)
			continue
		}
		read := existing.IsRead || rec.IsRead
		if rec.Source.Supersedes(existing.Source) {
			existing = rec
		}
		existing.IsRead = read
		byKey[key] = existing
	}

	merged := make([]NotificationRecord, 0, len(byKey))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	return merged
}
