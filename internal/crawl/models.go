// Package crawl holds the business side of the worker: the crawl request
// contract, the extraction boundary, and the handler the retry coordinator
// invokes per delivery.
package crawl

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// CrawlRequest is the inbound message on the primary queue.
type CrawlRequest struct {
	InstagramURL string `json:"instagram_url"`
	RequestID    string `json:"request_id,omitempty"`
	Priority     int    `json:"priority,omitempty"`
}

// Validate checks that the request carries a usable post URL.
func (r *CrawlRequest) Validate() error {
	if r.InstagramURL == "" {
		return fmt.Errorf("missing instagram_url")
	}
	u, err := url.Parse(r.InstagramURL)
	if err != nil {
		return fmt.Errorf("invalid instagram_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid instagram_url scheme %q", u.Scheme)
	}
	return nil
}

// RawRecipeData is the extraction result published downstream.
type RawRecipeData struct {
	URL              string   `json:"url"`
	Caption          string   `json:"caption"`
	MediaURLs        []string `json:"media_urls"`
	Author           string   `json:"author"`
	Timestamp        string   `json:"timestamp"`
	Hashtags         []string `json:"hashtags,omitempty"`
	Mentions         []string `json:"mentions,omitempty"`
	LikesCount       *int     `json:"likes_count,omitempty"`
	CommentsCount    *int     `json:"comments_count,omitempty"`
	AuthorTopComment string   `json:"author_top_comment,omitempty"`
	RequestID        string   `json:"request_id,omitempty"`
}

// DecodeRequest parses an inbound payload. Producers historically sent
// either a request object or a one-element array around it; both forms are
// accepted.
func DecodeRequest(payload []byte) (*CrawlRequest, error) {
	var req CrawlRequest
	if err := json.Unmarshal(payload, &req); err == nil {
		if vErr := req.Validate(); vErr == nil {
			return &req, nil
		}
	}

	var list []CrawlRequest
	if err := json.Unmarshal(payload, &list); err == nil && len(list) > 0 {
		req = list[0]
		if vErr := req.Validate(); vErr != nil {
			return nil, fmt.Errorf("decode crawl request: %w", vErr)
		}
		return &req, nil
	}

	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode crawl request: %w", err)
	}
	return nil, fmt.Errorf("decode crawl request: %w", req.Validate())
}
