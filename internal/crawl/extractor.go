package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/recipepipe/crawl-worker/internal/core"
)

// OEmbedExtractor resolves post metadata through an oEmbed-style endpoint.
// It is the minimal built-in extractor; richer scraping implementations
// satisfy the same Extractor interface elsewhere.
type OEmbedExtractor struct {
	endpoint string
	client   *http.Client
}

// NewOEmbedExtractor creates an extractor against the given endpoint.
func NewOEmbedExtractor(endpoint string, timeout time.Duration) *OEmbedExtractor {
	return &OEmbedExtractor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type oembedResponse struct {
	AuthorName   string `json:"author_name"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Extract fetches post metadata. HTTP 429 surfaces as a RateLimitError so
// the coordinator selects the rate-limited ladder; everything else
// (timeouts included) is an ordinary error and defaults to transient.
func (e *OEmbedExtractor) Extract(ctx context.Context, postURL string) (*RawRecipeData, error) {
	reqURL := fmt.Sprintf("%s?url=%s", e.endpoint, url.QueryEscape(postURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build oembed request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch oembed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &core.RateLimitError{Service: "instagram", Message: resp.Status}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("oembed returned %s", resp.Status)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode oembed response: %w", err)
	}

	data := &RawRecipeData{
		URL:       postURL,
		Caption:   body.Title,
		Author:    body.AuthorName,
		Timestamp: core.FormatTime(time.Now()),
	}
	if body.ThumbnailURL != "" {
		data.MediaURLs = []string{body.ThumbnailURL}
	}
	return data, nil
}
