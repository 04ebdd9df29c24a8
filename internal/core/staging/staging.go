package staging

import "fmt"

// PlatformContent is the per-platform slice of a staged piece of content.
type PlatformContent struct {
	Caption      string   `json:"caption"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"callToAction"`
	MediaURLs    []string `json:"mediaUrls"`
}

// StagedContent is what the upstream generation pipeline hands over: the
// target platform list plus one content entry per platform. This service
// consumes it, it never produces it.
type StagedContent struct {
	Platforms []string                   `json:"platforms"`
	Content   map[string]PlatformContent `json:"content"`
}

// Gate decides whether staged content is complete enough to be scheduled.
// It is pure and fails closed: any missing element on any target platform
// blocks promotion.
type Gate struct {
	mediaRequired map[string]bool
}

func NewGate(mediaRequired map[string]bool) *Gate {
	return &Gate{mediaRequired: mediaRequired}
}

// IsReady reports whether every target platform has a complete entry.
func (g *Gate) IsReady(c StagedContent) bool {
	return len(g.MissingElements(c)) == 0
}

// MissingElements lists what still blocks scheduling, one entry per missing
// element, e.g. "linkedin hashtags". The list is meant to be shown verbatim
// to the producer.
func (g *Gate) MissingElements(c StagedContent) []string {
	var missing []string

	if len(c.Platforms) == 0 {
		return []string{"platforms"}
	}

	for _, platform := range c.Platforms {
		pc, ok := c.Content[platform]
		if !ok {
			missing = append(missing, fmt.Sprintf("%s content", platform))
			continue
		}
		if pc.Caption == "" {
			missing = append(missing, fmt.Sprintf("%s caption", platform))
		}
		if len(pc.Hashtags) == 0 {
			missing = append(missing, fmt.Sprintf("%s hashtags", platform))
		}
		if pc.CallToAction == "" {
			missing = append(missing, fmt.Sprintf("%s call-to-action", platform))
		}
		if g.mediaRequired[platform] && len(pc.MediaURLs) == 0 {
			missing = append(missing, fmt.Sprintf("%s media", platform))
		}
	}

	return missing
}
