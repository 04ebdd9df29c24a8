package integration

import (
	"time"

	"github.com/gofrs/uuid"
)

// Integration binds one user to one external platform account: the OAuth
// tokens plus the platform-side identifier (page id, channel, author urn).
// At most one enabled row exists per (user, platform). Rows are created by
// the OAuth connect flow outside this service and mutated here only by the
// token manager.
type Integration struct {
	ID           uuid.UUID `gorm:"primary_key;type:char(36)"`
	UserID       uuid.UUID `gorm:"type:char(36);not null;index:idx_user_platform"`
	Platform     string    `gorm:"type:varchar(32);not null;index:idx_user_platform"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text"`
	TokenExpiry  *time.Time
	AccountID    string     `gorm:"type:varchar(128)"`
	Disabled     bool       `gorm:"not null;default:false"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
	DeletedAt    *time.Time `gorm:"index"`
}

// TokenExpired reports whether the access token needs a refresh before use.
// A missing expiry is treated as a non-expiring token.
func (i *Integration) TokenExpired(now time.Time) bool {
	return i.TokenExpiry != nil && !i.TokenExpiry.After(now)
}
