package dispatchapp

import (
	"context"
	"time"

	integrationEntity "crosspost/internal/core/integration"
	postEntity "crosspost/internal/core/post"
	integrationPort "crosspost/internal/ports/integration"
	postPort "crosspost/internal/ports/post"
	publisherPort "crosspost/internal/ports/publisher"
	cachePort "crosspost/internal/ports/publishcache"

	"go.uber.org/zap"
)

// Machine-readable failure codes. They are stored on the post row and
// returned verbatim by the manual publish endpoint.
const (
	CodePostNotFound        = "POST_NOT_FOUND"
	CodeFuturePost          = "FUTURE_POST"
	CodeIntegrationNotFound = "INTEGRATION_NOT_FOUND"
	CodeTokenRefreshFailed  = "TOKEN_REFRESH_FAILED"
	CodePlatformMissing     = "PLATFORM_MISSING"
	CodePublishFailed       = "PUBLISH_FAILED"
)

// PublishError is a failed attempt with its code; Message keeps the platform
// error verbatim where one was available.
type PublishError struct {
	Code    string
	Message string
}

func (e *PublishError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// TokenManager is what the dispatcher needs from the token service.
type TokenManager interface {
	EnsureValidToken(ctx context.Context, in *integrationEntity.Integration) (string, error)
}

// DispatchService drives due posts through the publish pipeline: claim the
// row, resolve the integration, refresh the token if needed, call the
// platform adapter, fold the result back into the row. One post's failure
// never aborts the batch.
type DispatchService struct {
	PostRepository        postPort.PostRepository
	IntegrationRepository integrationPort.IntegrationRepository
	TokenManager          TokenManager
	Registry              publisherPort.Registry
	PublishCache          cachePort.PublishCache
	BatchSize             int
	Logger                *zap.Logger
	Now                   func() time.Time
}

func NewDispatchService(
	postRepo postPort.PostRepository,
	integrationRepo integrationPort.IntegrationRepository,
	tokens TokenManager,
	registry publisherPort.Registry,
	publishCache cachePort.PublishCache,
	batchSize int,
	logger *zap.Logger,
) *DispatchService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &DispatchService{
		PostRepository:        postRepo,
		IntegrationRepository: integrationRepo,
		TokenManager:          tokens,
		Registry:              registry,
		PublishCache:          publishCache,
		BatchSize:             batchSize,
		Logger:                logger,
		Now:                   time.Now,
	}
}

// RunDue processes one batch of due posts sequentially, in ascending
// publish_date order. Sequential on purpose: predictable resource usage and
// no thundering herd against a single platform's rate limiter.
func (s *DispatchService) RunDue(ctx context.Context) (*postPort.DispatchSummaryDTO, error) {
	now := s.Now()

	due, err := s.PostRepository.FindDue(ctx, now, s.BatchSize)
	if err != nil {
		return nil, err
	}

	summary := &postPort.DispatchSummaryDTO{Results: make([]postPort.DispatchResultDTO, 0, len(due))}
	for _, p := range due {
		summary.Results = append(summary.Results, s.dispatchOne(ctx, p))
		summary.Processed++
	}

	if summary.Processed > 0 {
		s.Logger.Info("✅ Dispatch run finished", zap.Int("processed", summary.Processed))
	}
	return summary, nil
}

// dispatchOne handles a single due post end to end. Every failure ends in
// state=failed with the message stored; nothing here retries.
func (s *DispatchService) dispatchOne(ctx context.Context, p *postEntity.Post) postPort.DispatchResultDTO {
	result := postPort.DispatchResultDTO{PostID: p.ID.String()}

	claimed, err := s.PostRepository.ClaimForPublishing(ctx, p.ID)
	if err != nil {
		s.Logger.Error("❌ Could not claim post", zap.String("postID", result.PostID), zap.Error(err))
		result.Status = "error"
		result.Error = err.Error()
		return result
	}
	if !claimed {
		// Another run (or a manual publish) won the row.
		s.Logger.Info("Post already claimed, skipping", zap.String("postID", result.PostID))
		result.Status = "skipped"
		return result
	}

	s.Logger.Info("➡ Publishing post",
		zap.String("postID", result.PostID),
		zap.String("platform", p.Platform))

	res, perr := s.publishClaimed(ctx, p)
	if perr != nil {
		s.failPost(ctx, p, perr)
		result.Status = postEntity.StateFailed
		result.Error = perr.Error()
		return result
	}

	s.completePost(ctx, p, res)
	result.Status = postEntity.StatePublished
	return result
}

// publishClaimed runs the integration/token/adapter steps for a post that is
// already in publishing state. It only talks to the outside world; all row
// mutation stays with the caller.
func (s *DispatchService) publishClaimed(ctx context.Context, p *postEntity.Post) (*publisherPort.Result, *PublishError) {
	in, err := s.IntegrationRepository.FindEnabled(ctx, p.UserID.String(), p.Platform)
	if err != nil {
		return nil, &PublishError{Code: CodeIntegrationNotFound, Message: "no enabled integration for " + p.Platform}
	}

	token, err := s.TokenManager.EnsureValidToken(ctx, in)
	if err != nil {
		return nil, &PublishError{Code: CodeTokenRefreshFailed, Message: err.Error()}
	}

	pub, ok := s.Registry.Lookup(p.Platform)
	if !ok {
		return nil, &PublishError{Code: CodePlatformMissing, Message: "no adapter registered for " + p.Platform}
	}

	res, err := pub.Publish(ctx, publisherPort.Auth{AccessToken: token, AccountID: in.AccountID}, publisherPort.Content{
		Caption:      p.Caption,
		Hashtags:     p.Hashtags,
		CallToAction: p.CallToAction,
		MediaURLs:    p.MediaURLs,
	})
	if err != nil {
		return nil, &PublishError{Code: CodePublishFailed, Message: err.Error()}
	}

	return res, nil
}

func (s *DispatchService) failPost(ctx context.Context, p *postEntity.Post, perr *PublishError) {
	s.Logger.Error("❌ Publish failed",
		zap.String("postID", p.ID.String()),
		zap.String("platform", p.Platform),
		zap.String("code", perr.Code),
		zap.String("error", perr.Message))

	if err := s.PostRepository.MarkFailed(ctx, p.ID, perr.Error()); err != nil {
		s.Logger.Error("❌ Could not mark post failed", zap.String("postID", p.ID.String()), zap.Error(err))
	}
}

func (s *DispatchService) completePost(ctx context.Context, p *postEntity.Post, res *publisherPort.Result) {
	now := s.Now()

	if err := s.PostRepository.MarkPublished(ctx, p.ID, res.PlatformPostID, res.URL, now); err != nil {
		s.Logger.Error("❌ Could not mark post published", zap.String("postID", p.ID.String()), zap.Error(err))
		return
	}

	s.Logger.Info("✅ Post published",
		zap.String("postID", p.ID.String()),
		zap.String("platform", p.Platform),
		zap.String("platformPostID", res.PlatformPostID))

	// Cache is best effort; the row is already published.
	if err := s.PublishCache.RecordPublished(ctx, p.UserID.String(), p.ID.String(), now); err != nil {
		s.Logger.Warn("⚠️ Could not record publish in cache", zap.String("postID", p.ID.String()), zap.Error(err))
	}
}

// PublishByID is the manual publish path: ownership, due time and state are
// validated and failures come back with a machine-readable code. Publishing
// an already-published post is an idempotent no-op success.
func (s *DispatchService) PublishByID(ctx context.Context, userID, postID string) (*postPort.PublishResponseDTO, *PublishError) {
	p, err := s.PostRepository.FindByID(ctx, postID)
	if err != nil {
		return nil, &PublishError{Code: CodePostNotFound, Message: "post not found"}
	}
	if p.UserID.String() != userID {
		return nil, &PublishError{Code: CodePostNotFound, Message: "post not found"}
	}

	if p.State == postEntity.StatePublished {
		return &postPort.PublishResponseDTO{
			Success:        true,
			PlatformPostID: p.PlatformPostID,
			URL:            p.PostURL,
		}, nil
	}

	if p.PublishDate.After(s.Now()) {
		return nil, &PublishError{Code: CodeFuturePost, Message: "post is scheduled in the future"}
	}

	claimed, err := s.PostRepository.ClaimForPublishing(ctx, p.ID)
	if err != nil {
		return nil, &PublishError{Code: CodePublishFailed, Message: err.Error()}
	}
	if !claimed {
		return nil, &PublishError{Code: CodePublishFailed, Message: "post is not in a publishable state"}
	}

	res, perr := s.publishClaimed(ctx, p)
	if perr != nil {
		s.failPost(ctx, p, perr)
		return nil, perr
	}

	s.completePost(ctx, p, res)
	return &postPort.PublishResponseDTO{
		Success:        true,
		PlatformPostID: res.PlatformPostID,
		URL:            res.URL,
	}, nil
}
