package dispatchapp

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	integrationEntity "crosspost/internal/core/integration"
	postEntity "crosspost/internal/core/post"
	integrationapp "crosspost/internal/core/integration/service"
	oauthPort "crosspost/internal/ports/oauth"
	postPort "crosspost/internal/ports/post"
	publisherPort "crosspost/internal/ports/publisher"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// In-memory Post store with the same claim semantics as the MySQL adapter:
// a conditional state update under one lock.
type memPostRepo struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*postEntity.Post
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: make(map[uuid.UUID]*postEntity.Post)}
}

func (r *memPostRepo) Create(ctx context.Context, p *postEntity.Post) (*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.posts[p.ID] = &cp
	return p, nil
}

func (r *memPostRepo) FindByID(ctx context.Context, id string) (*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ID.String() == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, postPort.ErrNotFound
}

func (r *memPostRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*postEntity.Post
	for _, p := range r.posts {
		if p.State == postEntity.StateScheduled && !p.PublishDate.After(now) {
			cp := *p
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].PublishDate.Before(due[j].PublishDate) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *memPostRepo) ClaimForPublishing(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.State != postEntity.StateScheduled {
		return false, nil
	}
	p.State = postEntity.StatePublishing
	return true, nil
}

func (r *memPostRepo) MarkPublished(ctx context.Context, id uuid.UUID, platformPostID, url string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return postPort.ErrNotFound
	}
	p.State = postEntity.StatePublished
	p.PlatformPostID = platformPostID
	p.PostURL = url
	p.PublishedAt = &at
	p.LastError = ""
	return nil
}

func (r *memPostRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return postPort.ErrNotFound
	}
	p.State = postEntity.StateFailed
	p.LastError = message
	return nil
}

func (r *memPostRepo) Reschedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || (p.State != postEntity.StateFailed && p.State != postEntity.StateScheduled) {
		return false, nil
	}
	p.State = postEntity.StateScheduled
	p.PublishDate = publishAt
	p.LastError = ""
	return true, nil
}

func (r *memPostRepo) CountStuckPublishing(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.posts {
		if p.State == postEntity.StatePublishing && p.UpdatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *memPostRepo) get(id uuid.UUID) postEntity.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.posts[id]
}

type memIntegrationRepo struct {
	mu     sync.Mutex
	stored map[uuid.UUID]*integrationEntity.Integration
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{stored: make(map[uuid.UUID]*integrationEntity.Integration)}
}

func (r *memIntegrationRepo) Create(ctx context.Context, in *integrationEntity.Integration) (*integrationEntity.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *in
	r.stored[in.ID] = &cp
	return in, nil
}

func (r *memIntegrationRepo) FindEnabled(ctx context.Context, userID, platform string) (*integrationEntity.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.stored {
		if in.UserID.String() == userID && in.Platform == platform && !in.Disabled {
			cp := *in
			return &cp, nil
		}
	}
	return nil, errors.New("integration not found")
}

func (r *memIntegrationRepo) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.stored[id]
	if !ok {
		return errors.New("integration not found")
	}
	in.AccessToken = accessToken
	in.RefreshToken = refreshToken
	in.TokenExpiry = &expiry
	return nil
}

type stubPublisher struct {
	mu     sync.Mutex
	auths  []publisherPort.Auth
	result *publisherPort.Result
	err    error
}

func (s *stubPublisher) Publish(ctx context.Context, auth publisherPort.Auth, content publisherPort.Content) (*publisherPort.Result, error) {
	s.mu.Lock()
	s.auths = append(s.auths, auth)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.auths)
}

type stubRegistry map[string]publisherPort.Publisher

func (r stubRegistry) Lookup(platform string) (publisherPort.Publisher, bool) {
	p, ok := r[platform]
	return p, ok
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]string
	err     error
}

func newMemCache() *memCache { return &memCache{entries: make(map[string][]string)} }

func (c *memCache) RecordPublished(ctx context.Context, userID, postID string, at time.Time) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = append(c.entries[userID], postID)
	return nil
}

func (c *memCache) RecentPublished(ctx context.Context, userID string, limit int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[userID], nil
}

type passthroughTokens struct{}

func (passthroughTokens) EnsureValidToken(ctx context.Context, in *integrationEntity.Integration) (string, error) {
	return in.AccessToken, nil
}

type refusingOAuth struct{}

func (refusingOAuth) RefreshToken(ctx context.Context, platform, refreshToken string) (*oauthPort.TokenPair, error) {
	return nil, errors.New("invalid_grant")
}

type rotatingOAuth struct{ token string }

func (o rotatingOAuth) RefreshToken(ctx context.Context, platform, refreshToken string) (*oauthPort.TokenPair, error) {
	return &oauthPort.TokenPair{AccessToken: o.token, ExpiresIn: 3600}, nil
}

type fixture struct {
	svc       *DispatchService
	posts     *memPostRepo
	integs    *memIntegrationRepo
	publisher *stubPublisher
	cache     *memCache
	userID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		posts:     newMemPostRepo(),
		integs:    newMemIntegrationRepo(),
		publisher: &stubPublisher{result: &publisherPort.Result{PlatformPostID: "1845", URL: "https://twitter.com/i/web/status/1845"}},
		cache:     newMemCache(),
		userID:    uuid.Must(uuid.NewV4()),
	}
	f.svc = NewDispatchService(
		f.posts, f.integs, passthroughTokens{},
		stubRegistry{"x": f.publisher}, f.cache, 10, zap.NewNop())
	return f
}

func (f *fixture) seedIntegration(t *testing.T, expiry *time.Time, refreshToken string) *integrationEntity.Integration {
	t.Helper()
	in := &integrationEntity.Integration{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       f.userID,
		Platform:     "x",
		AccessToken:  "valid-token",
		RefreshToken: refreshToken,
		TokenExpiry:  expiry,
		AccountID:    "12345",
	}
	if _, err := f.integs.Create(context.Background(), in); err != nil {
		t.Fatalf("seed integration: %v", err)
	}
	return in
}

func (f *fixture) seedDuePost(t *testing.T) *postEntity.Post {
	t.Helper()
	p := &postEntity.Post{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      f.userID,
		Platform:    "x",
		Caption:     "hello world",
		Hashtags:    []string{"go"},
		State:       postEntity.StateScheduled,
		PublishDate: time.Now().Add(-time.Second),
	}
	if _, err := f.posts.Create(context.Background(), p); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func TestDispatchPublishesDuePost(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)

	summary, err := f.svc.RunDue(context.Background())
	if err != nil {
		t.Fatalf("RunDue: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", summary.Processed)
	}
	if summary.Results[0].Status != postEntity.StatePublished {
		t.Fatalf("expected published, got %+v", summary.Results[0])
	}

	stored := f.posts.get(p.ID)
	if stored.State != postEntity.StatePublished {
		t.Fatalf("expected state published, got %s", stored.State)
	}
	if stored.PlatformPostID == "" {
		t.Fatal("expected platform post id to be stored")
	}
	if !strings.HasPrefix(stored.PostURL, "https://twitter.com/i/web/status/") {
		t.Fatalf("unexpected post url %q", stored.PostURL)
	}
	if got := f.cache.entries[f.userID.String()]; len(got) != 1 || got[0] != p.ID.String() {
		t.Fatalf("expected publish recorded in cache, got %v", got)
	}
}

func TestDispatchIsIdempotentAcrossRuns(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)

	if _, err := f.svc.RunDue(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := f.svc.RunDue(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.Processed != 0 {
		t.Fatalf("published post must not be picked up again, got %+v", summary)
	}
	if f.publisher.calls() != 1 {
		t.Fatalf("adapter must be called exactly once, got %d", f.publisher.calls())
	}
	if f.posts.get(p.ID).State != postEntity.StatePublished {
		t.Fatal("post must stay published")
	}
}

func TestConcurrentRunsClaimEachPostOnce(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	f.seedDuePost(t)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.RunDue(context.Background()); err != nil {
				t.Errorf("RunDue: %v", err)
			}
		}()
	}
	wg.Wait()

	if f.publisher.calls() != 1 {
		t.Fatalf("exactly one run must win the claim, adapter called %d times", f.publisher.calls())
	}
}

func TestTokenRefreshPrecedesPublish(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-time.Minute)
	in := f.seedIntegration(t, &past, "refresh-me")
	f.seedDuePost(t)

	// Real token service over a fake exchange, so rotation goes through the
	// same persistence path production uses.
	f.svc.TokenManager = integrationapp.NewTokenService(f.integs, rotatingOAuth{token: "brand-new-token"}, zap.NewNop())

	if _, err := f.svc.RunDue(context.Background()); err != nil {
		t.Fatalf("RunDue: %v", err)
	}

	if f.publisher.calls() != 1 {
		t.Fatalf("expected one publish, got %d", f.publisher.calls())
	}
	f.publisher.mu.Lock()
	auth := f.publisher.auths[0]
	f.publisher.mu.Unlock()
	if auth.AccessToken != "brand-new-token" {
		t.Fatalf("adapter must get the refreshed token, got %q", auth.AccessToken)
	}

	stored, err := f.integs.FindEnabled(context.Background(), f.userID.String(), "x")
	if err != nil {
		t.Fatalf("FindEnabled: %v", err)
	}
	if stored.AccessToken == in.AccessToken || stored.AccessToken != "brand-new-token" {
		t.Fatalf("stored token must be rotated, got %q", stored.AccessToken)
	}
}

func TestTokenRefreshFailureFailsPost(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-time.Minute)
	f.seedIntegration(t, &past, "refresh-me")
	p := f.seedDuePost(t)

	f.svc.TokenManager = integrationapp.NewTokenService(f.integs, refusingOAuth{}, zap.NewNop())

	if _, err := f.svc.RunDue(context.Background()); err != nil {
		t.Fatalf("RunDue: %v", err)
	}

	stored := f.posts.get(p.ID)
	if stored.State != postEntity.StateFailed {
		t.Fatalf("expected failed, got %s", stored.State)
	}
	if !strings.Contains(stored.LastError, CodeTokenRefreshFailed) {
		t.Fatalf("expected %s in error, got %q", CodeTokenRefreshFailed, stored.LastError)
	}
	if f.publisher.calls() != 0 {
		t.Fatal("adapter must not be called after a failed refresh")
	}
}

func TestMissingIntegrationFailsPost(t *testing.T) {
	f := newFixture(t)
	p := f.seedDuePost(t)

	if _, err := f.svc.RunDue(context.Background()); err != nil {
		t.Fatalf("RunDue: %v", err)
	}

	stored := f.posts.get(p.ID)
	if stored.State != postEntity.StateFailed || !strings.Contains(stored.LastError, CodeIntegrationNotFound) {
		t.Fatalf("expected INTEGRATION_NOT_FOUND failure, got %+v", stored)
	}
}

func TestFailedPostStaysFailed(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)
	f.publisher.err = errors.New("platform returned status 500: internal error")

	if _, err := f.svc.RunDue(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if f.posts.get(p.ID).State != postEntity.StateFailed {
		t.Fatal("expected failed state")
	}

	// No automatic retry: further runs never touch the post again.
	f.publisher.err = nil
	summary, err := f.svc.RunDue(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Processed != 0 || f.posts.get(p.ID).State != postEntity.StateFailed {
		t.Fatalf("failed must be terminal, got %+v", f.posts.get(p.ID))
	}
	if f.publisher.calls() != 1 {
		t.Fatalf("adapter must not be retried, got %d calls", f.publisher.calls())
	}
}

func TestBatchIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	bad := f.seedDuePost(t)
	// Retarget to a platform with no adapter registered in this fixture.
	f.posts.mu.Lock()
	f.posts.posts[bad.ID].Platform = "linkedin"
	f.posts.mu.Unlock()
	good := f.seedDuePost(t)

	summary, err := f.svc.RunDue(context.Background())
	if err != nil {
		t.Fatalf("RunDue: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected both posts processed, got %d", summary.Processed)
	}
	if f.posts.get(good.ID).State != postEntity.StatePublished {
		t.Fatal("good post must publish despite the failing one")
	}
	stored := f.posts.get(bad.ID)
	if stored.State != postEntity.StateFailed {
		t.Fatalf("expected failed, got %s", stored.State)
	}
}

func TestBatchSizeCapsRun(t *testing.T) {
	f := newFixture(t)
	f.svc.BatchSize = 2
	f.seedIntegration(t, nil, "")
	for i := 0; i < 5; i++ {
		f.seedDuePost(t)
	}

	summary, err := f.svc.RunDue(context.Background())
	if err != nil {
		t.Fatalf("RunDue: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected batch cap of 2, got %d", summary.Processed)
	}
}

func TestManualPublishNotFoundAndOwnership(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)

	if _, perr := f.svc.PublishByID(context.Background(), f.userID.String(), uuid.Must(uuid.NewV4()).String()); perr == nil || perr.Code != CodePostNotFound {
		t.Fatalf("expected POST_NOT_FOUND, got %+v", perr)
	}

	stranger := uuid.Must(uuid.NewV4()).String()
	if _, perr := f.svc.PublishByID(context.Background(), stranger, p.ID.String()); perr == nil || perr.Code != CodePostNotFound {
		t.Fatalf("ownership violation must look like POST_NOT_FOUND, got %+v", perr)
	}
}

func TestManualPublishFuturePost(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)
	f.posts.mu.Lock()
	f.posts.posts[p.ID].PublishDate = time.Now().Add(time.Hour)
	f.posts.mu.Unlock()

	if _, perr := f.svc.PublishByID(context.Background(), f.userID.String(), p.ID.String()); perr == nil || perr.Code != CodeFuturePost {
		t.Fatalf("expected FUTURE_POST, got %+v", perr)
	}
	if f.publisher.calls() != 0 {
		t.Fatal("future post must not reach the adapter")
	}
}

func TestManualPublishAlreadyPublishedIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)

	if _, err := f.svc.RunDue(context.Background()); err != nil {
		t.Fatalf("RunDue: %v", err)
	}

	res, perr := f.svc.PublishByID(context.Background(), f.userID.String(), p.ID.String())
	if perr != nil {
		t.Fatalf("expected idempotent success, got %+v", perr)
	}
	if !res.Success || res.PlatformPostID == "" || res.URL == "" {
		t.Fatalf("expected stored result echoed back, got %+v", res)
	}
	if f.publisher.calls() != 1 {
		t.Fatalf("no second adapter call allowed, got %d", f.publisher.calls())
	}
}

func TestManualPublishSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)

	res, perr := f.svc.PublishByID(context.Background(), f.userID.String(), p.ID.String())
	if perr != nil {
		t.Fatalf("PublishByID: %+v", perr)
	}
	if !res.Success || res.PlatformPostID != "1845" {
		t.Fatalf("unexpected response %+v", res)
	}
	if f.posts.get(p.ID).State != postEntity.StatePublished {
		t.Fatal("post must end published")
	}
}

func TestCacheFailureDoesNotFailPublish(t *testing.T) {
	f := newFixture(t)
	f.cache.err = errors.New("redis down")
	f.seedIntegration(t, nil, "")
	p := f.seedDuePost(t)

	if _, err := f.svc.RunDue(context.Background()); err != nil {
		t.Fatalf("RunDue: %v", err)
	}
	if f.posts.get(p.ID).State != postEntity.StatePublished {
		t.Fatal("cache failure must not affect post state")
	}
}
