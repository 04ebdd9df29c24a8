package platform

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	publisherPort "crosspost/internal/ports/publisher"
)

// LinkedInPublisher creates a UGC share. AccountID is the author urn (or a
// bare member id, which gets the person urn prefix).
type LinkedInPublisher struct {
	api api
}

func NewLinkedInPublisher(client *http.Client, baseURL string, requestsPerSecond float64) *LinkedInPublisher {
	return &LinkedInPublisher{api: newAPI(client, baseURL, requestsPerSecond)}
}

func (p *LinkedInPublisher) Publish(ctx context.Context, auth publisherPort.Auth, content publisherPort.Content) (*publisherPort.Result, error) {
	author := auth.AccountID
	if author == "" {
		return nil, fmt.Errorf("linkedin integration has no author id")
	}
	if !strings.HasPrefix(author, "urn:") {
		author = "urn:li:person:" + author
	}

	body := map[string]interface{}{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": composeText(content),
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := p.api.postJSON(ctx, "/v2/ugcPosts", auth.AccessToken, body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("share created but no id in response")
	}

	return &publisherPort.Result{
		PlatformPostID: resp.ID,
		URL:            "https://www.linkedin.com/feed/update/" + resp.ID,
	}, nil
}
