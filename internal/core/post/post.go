package post

import (
	"time"

	"github.com/gofrs/uuid"
)

// Lifecycle states. Transitions are monotonic:
// scheduled -> publishing -> published | failed.
// draft lives upstream and never enters this store.
const (
	StateScheduled  = "scheduled"
	StatePublishing = "publishing"
	StatePublished  = "published"
	StateFailed     = "failed"
)

// Post is one schedulable unit of work: one piece of content targeted at
// exactly one platform. Multi-platform fan-out of the same content is stored
// as multiple rows, each dispatched independently.
type Post struct {
	ID             uuid.UUID  `gorm:"primary_key;type:char(36)"`
	UserID         uuid.UUID  `gorm:"type:char(36);not null;index"`
	Platform       string     `gorm:"type:varchar(32);not null;index"`
	Caption        string     `gorm:"type:text;not null"`
	Hashtags       []string   `gorm:"serializer:json;type:text"`
	CallToAction   string     `gorm:"type:text"`
	MediaURLs      []string   `gorm:"serializer:json;type:text"`
	State          string     `gorm:"type:varchar(20);not null;index:idx_state_due"`
	PublishDate    time.Time  `gorm:"not null;index:idx_state_due"`
	IntegrationID  *uuid.UUID `gorm:"type:char(36)"`
	LastError      string     `gorm:"type:text"`
	PlatformPostID string     `gorm:"type:varchar(128)"`
	PostURL        string     `gorm:"type:varchar(512)"`
	PublishedAt    *time.Time
	Analytics      map[string]int64 `gorm:"serializer:json;type:text"`
	CreatedAt      time.Time        `gorm:"autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime"`
	DeletedAt      *time.Time       `gorm:"index"`
}
