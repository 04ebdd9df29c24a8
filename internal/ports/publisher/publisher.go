package publisher

import (
	"context"
	"errors"
)

// ErrNotImplemented is returned by adapters for platforms whose publish
// protocol (resumable/chunked upload) this service deliberately does not
// speak.
var ErrNotImplemented = errors.New("publishing to this platform is not implemented")

// Auth carries what an adapter needs to act on behalf of the user: the
// access token plus the platform-side account identifier (page id, author
// urn, channel).
type Auth struct {
	AccessToken string
	AccountID   string
}

// Content is the platform-ready snapshot taken when the post was scheduled.
type Content struct {
	Caption      string
	Hashtags     []string
	CallToAction string
	MediaURLs    []string
}

// Result is what the platform handed back on success. It is folded into the
// Post row by the dispatcher; adapters never persist anything themselves.
type Result struct {
	PlatformPostID string
	URL            string
}

// Publisher hides one platform's wire protocol behind a uniform publish
// call. Implementations are pure functions of (auth, content): a returned
// error is the whole story, there is no partial success.
type Publisher interface {
	Publish(ctx context.Context, auth Auth, content Content) (*Result, error)
}

// Registry maps platform id to its adapter.
type Registry interface {
	Lookup(platform string) (Publisher, bool)
}
