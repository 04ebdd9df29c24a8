package platform

import (
	"context"
	"fmt"
	"net/http"

	publisherPort "crosspost/internal/ports/publisher"
)

// TwitterPublisher posts a tweet: one authenticated call, the created id
// comes back in the response body.
type TwitterPublisher struct {
	api api
}

func NewTwitterPublisher(client *http.Client, baseURL string, requestsPerSecond float64) *TwitterPublisher {
	return &TwitterPublisher{api: newAPI(client, baseURL, requestsPerSecond)}
}

func (p *TwitterPublisher) Publish(ctx context.Context, auth publisherPort.Auth, content publisherPort.Content) (*publisherPort.Result, error) {
	body := map[string]string{"text": composeText(content)}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.api.postJSON(ctx, "/2/tweets", auth.AccessToken, body, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, fmt.Errorf("tweet created but no id in response")
	}

	return &publisherPort.Result{
		PlatformPostID: resp.Data.ID,
		URL:            "https://twitter.com/i/web/status/" + resp.Data.ID,
	}, nil
}
