package database

import (
	"context"
	"errors"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/core/post"
	postPort "crosspost/internal/ports/post"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// PostRepositoryDatabase implements PostRepository on MySQL.
type PostRepositoryDatabase struct{}

func NewPostRepositoryDatabase() *PostRepositoryDatabase {
	return &PostRepositoryDatabase{}
}

func (repo *PostRepositoryDatabase) Create(ctx context.Context, p *post.Post) (*post.Post, error) {
	if err := config.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (repo *PostRepositoryDatabase) FindByID(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	if err := config.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, postPort.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (repo *PostRepositoryDatabase) FindDue(ctx context.Context, now time.Time, limit int) ([]*post.Post, error) {
	var posts []*post.Post
	if err := config.DB.WithContext(ctx).
		Where("state = ? AND publish_date <= ?", post.StateScheduled, now).
		Order("publish_date ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ClaimForPublishing relies on the UPDATE being a single-row atomic
// compare-and-set; concurrent runs race on RowsAffected, not on a lock.
func (repo *PostRepositoryDatabase) ClaimForPublishing(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := config.DB.WithContext(ctx).Model(&post.Post{}).
		Where("id = ? AND state = ?", id, post.StateScheduled).
		Update("state", post.StatePublishing)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (repo *PostRepositoryDatabase) MarkPublished(ctx context.Context, id uuid.UUID, platformPostID, url string, at time.Time) error {
	return config.DB.WithContext(ctx).Model(&post.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":            post.StatePublished,
			"platform_post_id": platformPostID,
			"post_url":         url,
			"published_at":     at,
			"last_error":       "",
		}).Error
}

func (repo *PostRepositoryDatabase) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return config.DB.WithContext(ctx).Model(&post.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":      post.StateFailed,
			"last_error": message,
		}).Error
}

func (repo *PostRepositoryDatabase) Reschedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (bool, error) {
	tx := config.DB.WithContext(ctx).Model(&post.Post{}).
		Where("id = ? AND state IN ?", id, []string{post.StateFailed, post.StateScheduled}).
		Updates(map[string]interface{}{
			"state":        post.StateScheduled,
			"publish_date": publishAt,
			"last_error":   "",
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (repo *PostRepositoryDatabase) CountStuckPublishing(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	if err := config.DB.WithContext(ctx).Model(&post.Post{}).
		Where("state = ? AND updated_at < ?", post.StatePublishing, cutoff).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
