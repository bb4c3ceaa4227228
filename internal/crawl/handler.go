package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Extractor fetches post data for a crawl request. The real extraction
// logic lives outside this worker; implementations return
// *core.RateLimitError when the upstream throttles them.
type Extractor interface {
	Extract(ctx context.Context, postURL string) (*RawRecipeData, error)
}

// ResultPublisher delivers extracted data to the downstream queue.
type ResultPublisher interface {
	PublishResult(ctx context.Context, data *RawRecipeData) error
}

// Handler is the business handler the retry coordinator invokes per
// delivery. It decodes the request, runs the extractor, and publishes the
// result. It never acknowledges or re-publishes the inbound delivery; that
// is exclusively the coordinator's job.
type Handler struct {
	extractor Extractor
	results   ResultPublisher
	logger    *slog.Logger
}

// NewHandler wires the extraction boundary to the results queue.
func NewHandler(extractor Extractor, results ResultPublisher, logger *slog.Logger) *Handler {
	return &Handler{extractor: extractor, results: results, logger: logger}
}

// Handle processes one crawl request payload.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	req, err := DecodeRequest(payload)
	if err != nil {
		return err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	h.logger.Info("processing crawl request", "url", req.InstagramURL, "request_id", req.RequestID)

	data, err := h.extractor.Extract(ctx, req.InstagramURL)
	if err != nil {
		return fmt.Errorf("extract %s: %w", req.InstagramURL, err)
	}
	data.RequestID = req.RequestID

	if err := h.results.PublishResult(ctx, data); err != nil {
		return fmt.Errorf("publish result for %s: %w", req.InstagramURL, err)
	}

	h.logger.Info("crawl request processed", "url", req.InstagramURL, "author", data.Author)
	return nil
}
