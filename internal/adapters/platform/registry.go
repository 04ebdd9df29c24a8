package platform

import (
	"net/http"

	"crosspost/internal/config"
	publisherPort "crosspost/internal/ports/publisher"
)

// PublisherRegistry maps platform id to its adapter. Platforms marked
// unsupported in the catalog get a deterministic not-implemented adapter.
type PublisherRegistry struct {
	publishers map[string]publisherPort.Publisher
}

// NewRegistry builds every adapter from the catalog over one shared HTTP
// client.
func NewRegistry(catalog config.PlatformsConfig, client *http.Client) *PublisherRegistry {
	r := &PublisherRegistry{publishers: make(map[string]publisherPort.Publisher)}

	for _, p := range catalog.Platforms {
		if p.Unsupported {
			r.publishers[p.ID] = NewUnsupportedPublisher(p.ID)
			continue
		}

		switch p.ID {
		case "x":
			r.publishers[p.ID] = NewTwitterPublisher(client, p.APIBaseURL, p.RequestsPerSecond)
		case "facebook":
			r.publishers[p.ID] = NewFacebookPublisher(client, p.APIBaseURL, p.RequestsPerSecond)
		case "instagram":
			r.publishers[p.ID] = NewInstagramPublisher(client, p.APIBaseURL, p.RequestsPerSecond)
		case "linkedin":
			r.publishers[p.ID] = NewLinkedInPublisher(client, p.APIBaseURL, p.RequestsPerSecond)
		case "telegram":
			r.publishers[p.ID] = NewTelegramPublisher(p.RequestsPerSecond)
		default:
			// Listed in the catalog but unknown here: fail loudly at publish
			// time instead of falling through.
			r.publishers[p.ID] = NewUnsupportedPublisher(p.ID)
		}
	}

	return r
}

func (r *PublisherRegistry) Lookup(platform string) (publisherPort.Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

// Register overrides or adds a single adapter; used for wiring fakes.
func (r *PublisherRegistry) Register(platform string, p publisherPort.Publisher) {
	r.publishers[platform] = p
}
