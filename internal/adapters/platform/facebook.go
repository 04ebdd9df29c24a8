package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	publisherPort "crosspost/internal/ports/publisher"
)

// FacebookPublisher posts to a page feed via the Graph API. AccountID is the
// page id; the token travels in the form, Graph style.
type FacebookPublisher struct {
	api api
}

func NewFacebookPublisher(client *http.Client, baseURL string, requestsPerSecond float64) *FacebookPublisher {
	return &FacebookPublisher{api: newAPI(client, baseURL, requestsPerSecond)}
}

func (p *FacebookPublisher) Publish(ctx context.Context, auth publisherPort.Auth, content publisherPort.Content) (*publisherPort.Result, error) {
	if auth.AccountID == "" {
		return nil, fmt.Errorf("facebook integration has no page id")
	}

	form := url.Values{}
	form.Set("message", composeText(content))
	form.Set("access_token", auth.AccessToken)
	if len(content.MediaURLs) > 0 {
		form.Set("link", content.MediaURLs[0])
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := p.api.postForm(ctx, "/"+auth.AccountID+"/feed", form, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("page post created but no id in response")
	}

	return &publisherPort.Result{
		PlatformPostID: resp.ID,
		URL:            "https://www.facebook.com/" + resp.ID,
	}, nil
}
