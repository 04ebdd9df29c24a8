package postapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	postEntity "crosspost/internal/core/post"
	"crosspost/internal/core/staging"
	integrationPort "crosspost/internal/ports/integration"
	postPort "crosspost/internal/ports/post"
	cachePort "crosspost/internal/ports/publishcache"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// NotReadyError carries the gate diagnostics back to the producer.
type NotReadyError struct {
	Missing []string
}

func (e *NotReadyError) Error() string {
	return "content is not ready to schedule: missing " + strings.Join(e.Missing, ", ")
}

// PostService promotes staged content into scheduled Post rows and serves
// read paths over them.
type PostService struct {
	PostRepository        postPort.PostRepository
	IntegrationRepository integrationPort.IntegrationRepository
	PublishCache          cachePort.PublishCache
	Gate                  *staging.Gate
	Logger                *zap.Logger
}

func NewPostService(
	postRepo postPort.PostRepository,
	integrationRepo integrationPort.IntegrationRepository,
	publishCache cachePort.PublishCache,
	gate *staging.Gate,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		PostRepository:        postRepo,
		IntegrationRepository: integrationRepo,
		PublishCache:          publishCache,
		Gate:                  gate,
		Logger:                logger,
	}
}

// SchedulePost runs the readiness gate and, if it passes, creates one
// scheduled Post row per target platform. The content snapshot and the
// publish date are frozen here; only the dispatcher mutates the rows after
// this point.
func (s *PostService) SchedulePost(ctx context.Context, userID string, content staging.StagedContent, publishAt time.Time) ([]*postPort.PostDTO, error) {
	uid, err := uuid.FromString(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid userID: %w", err)
	}

	if missing := s.Gate.MissingElements(content); len(missing) > 0 {
		return nil, &NotReadyError{Missing: missing}
	}

	dtos := make([]*postPort.PostDTO, 0, len(content.Platforms))
	for _, platform := range content.Platforms {
		pc := content.Content[platform]

		p := &postEntity.Post{
			ID:           uuid.Must(uuid.NewV4()),
			UserID:       uid,
			Platform:     platform,
			Caption:      pc.Caption,
			Hashtags:     pc.Hashtags,
			CallToAction: pc.CallToAction,
			MediaURLs:    pc.MediaURLs,
			State:        postEntity.StateScheduled,
			PublishDate:  publishAt,
		}

		// Best effort: remember which integration the post was scheduled
		// against. The dispatcher resolves it again at publish time, so an
		// integration connected later still works.
		if in, err := s.IntegrationRepository.FindEnabled(ctx, userID, platform); err == nil {
			p.IntegrationID = &in.ID
		}

		created, err := s.PostRepository.Create(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule post for %s: %w", platform, err)
		}

		s.Logger.Info("✅ Post scheduled",
			zap.String("postID", created.ID.String()),
			zap.String("platform", platform),
			zap.Time("publishDate", publishAt))

		dtos = append(dtos, toDTO(created))
	}

	return dtos, nil
}

// GetPost returns a user-owned post or ErrNotFound.
func (s *PostService) GetPost(ctx context.Context, userID, postID string) (*postPort.PostDTO, error) {
	p, err := s.PostRepository.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.UserID.String() != userID {
		return nil, postPort.ErrNotFound
	}
	return toDTO(p), nil
}

// ReschedulePost is the manual recovery path for failed posts: a new publish
// date and a transition back to scheduled. The dispatcher never does this on
// its own.
func (s *PostService) ReschedulePost(ctx context.Context, userID, postID string, publishAt time.Time) (*postPort.PostDTO, error) {
	p, err := s.PostRepository.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.UserID.String() != userID {
		return nil, postPort.ErrNotFound
	}

	ok, err := s.PostRepository.Reschedule(ctx, p.ID, publishAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("post cannot be rescheduled in state " + p.State)
	}

	s.Logger.Info("✅ Post rescheduled",
		zap.String("postID", postID),
		zap.Time("publishDate", publishAt))

	return s.GetPost(ctx, userID, postID)
}

// RecentPublished reads the per-user recently-published feed from the cache.
func (s *PostService) RecentPublished(ctx context.Context, userID string, limit int64) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.PublishCache.RecentPublished(ctx, userID, limit)
}

func toDTO(p *postEntity.Post) *postPort.PostDTO {
	return &postPort.PostDTO{
		ID:             p.ID.String(),
		Platform:       p.Platform,
		Caption:        p.Caption,
		Hashtags:       p.Hashtags,
		CallToAction:   p.CallToAction,
		MediaURLs:      p.MediaURLs,
		State:          p.State,
		PublishDate:    p.PublishDate.UTC().Format(time.RFC3339),
		PlatformPostID: p.PlatformPostID,
		PostURL:        p.PostURL,
		LastError:      p.LastError,
	}
}
