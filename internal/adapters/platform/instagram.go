package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	publisherPort "crosspost/internal/ports/publisher"
)

// InstagramPublisher speaks the two-step container protocol: create a media
// container for a hosted image url, then publish the container. Both steps
// must succeed; a container orphaned by a failed publish step is not rolled
// back, it expires on the platform side.
type InstagramPublisher struct {
	api api
}

func NewInstagramPublisher(client *http.Client, baseURL string, requestsPerSecond float64) *InstagramPublisher {
	return &InstagramPublisher{api: newAPI(client, baseURL, requestsPerSecond)}
}

func (p *InstagramPublisher) Publish(ctx context.Context, auth publisherPort.Auth, content publisherPort.Content) (*publisherPort.Result, error) {
	if auth.AccountID == "" {
		return nil, fmt.Errorf("instagram integration has no account id")
	}
	if len(content.MediaURLs) == 0 {
		return nil, fmt.Errorf("instagram requires at least one media url")
	}

	// Step 1: media container.
	createForm := url.Values{}
	createForm.Set("image_url", content.MediaURLs[0])
	createForm.Set("caption", composeText(content))
	createForm.Set("access_token", auth.AccessToken)

	var container struct {
		ID string `json:"id"`
	}
	if err := p.api.postForm(ctx, "/"+auth.AccountID+"/media", createForm, &container); err != nil {
		return nil, fmt.Errorf("media container create failed: %w", err)
	}
	if container.ID == "" {
		return nil, fmt.Errorf("media container create returned no id")
	}

	// Step 2: publish the container.
	publishForm := url.Values{}
	publishForm.Set("creation_id", container.ID)
	publishForm.Set("access_token", auth.AccessToken)

	var media struct {
		ID string `json:"id"`
	}
	if err := p.api.postForm(ctx, "/"+auth.AccountID+"/media_publish", publishForm, &media); err != nil {
		return nil, fmt.Errorf("container publish failed: %w", err)
	}
	if media.ID == "" {
		return nil, fmt.Errorf("container publish returned no id")
	}

	result := &publisherPort.Result{PlatformPostID: media.ID}

	// Best effort: the publish response carries only the media id, the
	// public url needs a permalink read. Leave it empty if that fails.
	var permalink struct {
		Permalink string `json:"permalink"`
	}
	if err := p.api.getJSON(ctx, "/"+media.ID+"?fields=permalink&access_token="+url.QueryEscape(auth.AccessToken), "", &permalink); err == nil {
		result.URL = permalink.Permalink
	}

	return result, nil
}
