package port

import "context"

// VideoFetcher materializes the video behind a source URL at destPath.
// A successful fetch leaves a playable video file at destPath.
type VideoFetcher interface {
	Fetch(ctx context.Context, sourceURL string, destPath string) error
}
