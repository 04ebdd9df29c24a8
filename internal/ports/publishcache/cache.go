package publishcache

import (
	"context"
	"time"
)

// PublishCache keeps a per-user recently-published feed in Redis. It is an
// optimization for the UI: a cache failure must never fail a publish.
type PublishCache interface {
	RecordPublished(ctx context.Context, userID, postID string, at time.Time) error
	RecentPublished(ctx context.Context, userID string, limit int64) ([]string, error)
}
