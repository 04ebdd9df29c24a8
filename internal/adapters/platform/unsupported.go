package platform

import (
	"context"
	"fmt"

	publisherPort "crosspost/internal/ports/publisher"
)

// UnsupportedPublisher is registered for platforms whose publish protocol
// this service does not speak (resumable/chunked upload hosts like YouTube).
// It fails deterministically instead of attempting a partial protocol or
// falling through silently.
type UnsupportedPublisher struct {
	Platform string
}

func NewUnsupportedPublisher(platform string) *UnsupportedPublisher {
	return &UnsupportedPublisher{Platform: platform}
}

func (p *UnsupportedPublisher) Publish(ctx context.Context, auth publisherPort.Auth, content publisherPort.Content) (*publisherPort.Result, error) {
	return nil, fmt.Errorf("%s: %w", p.Platform, publisherPort.ErrNotImplemented)
}
