package post

import (
	"context"
	"errors"
	"time"

	"crosspost/internal/core/post"

	"github.com/gofrs/uuid"
)

// ErrNotFound is returned when a post id does not exist (or is soft-deleted).
var ErrNotFound = errors.New("post not found")

// PostRepository is the outbound port for the Post store. ClaimForPublishing
// must be a single-row conditional update: it is the only concurrency
// control between overlapping dispatcher runs.
type PostRepository interface {
	Create(ctx context.Context, p *post.Post) (*post.Post, error)
	FindByID(ctx context.Context, id string) (*post.Post, error)
	// FindDue returns scheduled posts with publish_date <= now, ascending,
	// capped at limit.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*post.Post, error)
	// ClaimForPublishing transitions scheduled -> publishing iff the stored
	// state is still scheduled. Returns false when another run won the row.
	ClaimForPublishing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkPublished(ctx context.Context, id uuid.UUID, platformPostID, url string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	// Reschedule moves a failed (or still scheduled) post back to scheduled
	// with a new publish date. Returns false if the current state does not
	// allow it.
	Reschedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (bool, error)
	// CountStuckPublishing counts rows stuck in publishing since before the
	// cutoff, left behind by a crashed run. Reported, never reclaimed.
	CountStuckPublishing(ctx context.Context, cutoff time.Time) (int64, error)
}

// DTOs for the use cases.

type PostDTO struct {
	ID             string   `json:"id"`
	Platform       string   `json:"platform"`
	Caption        string   `json:"caption"`
	Hashtags       []string `json:"hashtags,omitempty"`
	CallToAction   string   `json:"callToAction,omitempty"`
	MediaURLs      []string `json:"mediaUrls,omitempty"`
	State          string   `json:"state"`
	PublishDate    string   `json:"publishDate"`
	PlatformPostID string   `json:"platformPostId,omitempty"`
	PostURL        string   `json:"postUrl,omitempty"`
	LastError      string   `json:"lastError,omitempty"`
}

type DispatchResultDTO struct {
	PostID string `json:"postId"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type DispatchSummaryDTO struct {
	Processed int                 `json:"processed"`
	Results   []DispatchResultDTO `json:"results"`
}

type PublishResponseDTO struct {
	Success        bool   `json:"success"`
	PlatformPostID string `json:"platformPostId,omitempty"`
	URL            string `json:"url,omitempty"`
}
