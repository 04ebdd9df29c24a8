package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	publisherPort "crosspost/internal/ports/publisher"

	"golang.org/x/time/rate"
)

// api is the shared plumbing behind the REST adapters: one injected HTTP
// client and one rate limiter per platform. Tests swap the base URL for an
// httptest server.
type api struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

func newAPI(client *http.Client, baseURL string, requestsPerSecond float64) api {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return api{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// postJSON does an authenticated JSON POST and decodes the response into out.
func (a *api) postJSON(ctx context.Context, path, token string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return a.do(ctx, http.MethodPost, path, token, "application/json", bytes.NewReader(raw), out)
}

// postForm does a form-encoded POST (the Graph API style, token in the form).
func (a *api) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	return a.do(ctx, http.MethodPost, path, "", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

func (a *api) getJSON(ctx context.Context, path, token string, out interface{}) error {
	return a.do(ctx, http.MethodGet, path, token, "", nil, out)
}

func (a *api) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("could not decode platform response: %w", err)
		}
	}
	return nil
}

// apiError extracts the platform's error message best effort; the raw body
// is the fallback so nothing gets lost.
func apiError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Title   string `json:"title"`
	}
	_ = json.Unmarshal(raw, &envelope)

	msg := envelope.Error.Message
	if msg == "" {
		msg = envelope.Message
	}
	if msg == "" {
		msg = envelope.Detail
	}
	if msg == "" {
		msg = envelope.Title
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return fmt.Errorf("platform returned status %d: %s", status, msg)
}

// composeText flattens caption, hashtags and call-to-action into the single
// text body used by the text-first platforms.
func composeText(content publisherPort.Content) string {
	var parts []string
	if content.Caption != "" {
		parts = append(parts, content.Caption)
	}
	if len(content.Hashtags) > 0 {
		tags := make([]string, 0, len(content.Hashtags))
		for _, h := range content.Hashtags {
			if !strings.HasPrefix(h, "#") {
				h = "#" + h
			}
			tags = append(tags, h)
		}
		parts = append(parts, strings.Join(tags, " "))
	}
	if content.CallToAction != "" {
		parts = append(parts, content.CallToAction)
	}
	return strings.Join(parts, "\n\n")
}
