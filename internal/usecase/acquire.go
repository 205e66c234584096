package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"go.uber.org/zap"
)

// acquire resolves the video identifier from the source URL and downloads
// the video into the frame store. The download is idempotent: an existing
// file at the deterministic path is reused.
func (p *Pipeline) acquire(ctx context.Context, state *entity.RunState) {
	if state.Failed() {
		return
	}

	state.VideoID = ExtractVideoID(state.SourceURL)
	state.VideoPath = p.store.VideoPath(state.VideoID)

	if p.store.Exists(state.VideoPath) {
		p.logger.Info("video already in frame store, skipping download",
			zap.String("video_id", state.VideoID),
		)
		return
	}

	if err := p.fetcher.Fetch(ctx, state.SourceURL, state.VideoPath); err != nil {
		state.Fail(fmt.Sprintf("video acquisition failed: %v", err))
		return
	}

	p.logger.Info("video acquired",
		zap.String("video_id", state.VideoID),
		zap.String("path", state.VideoPath),
	)
}

// ExtractVideoID pattern-matches the three known URL shapes. Anything else
// yields the "unknown" sentinel rather than an error; the lenient fallback
// still lets the pipeline run with a non-namespaced identifier.
func ExtractVideoID(url string) string {
	switch {
	case strings.Contains(url, "youtube.com/watch?v="):
		id := strings.SplitN(url, "v=", 2)[1]
		return strings.SplitN(id, "&", 2)[0]
	case strings.Contains(url, "youtube.com/shorts/"):
		id := strings.SplitN(url, "shorts/", 2)[1]
		return strings.SplitN(id, "?", 2)[0]
	case strings.Contains(url, "youtu.be/"):
		id := strings.SplitN(url, "youtu.be/", 2)[1]
		return strings.SplitN(id, "?", 2)[0]
	default:
		return "unknown"
	}
}
