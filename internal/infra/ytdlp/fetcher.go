package ytdlp

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// Fetcher downloads a video with the yt-dlp CLI. Format selection matches
// the pipeline's needs: best stream capped at 720p, single file at destPath.
type Fetcher struct {
	binary string
	format string
	logger *zap.Logger
}

func NewFetcher(binary, format string, logger *zap.Logger) *Fetcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	if format == "" {
		format = "best[height<=720]"
	}
	return &Fetcher{binary: binary, format: format, logger: logger}
}

func (f *Fetcher) Fetch(ctx context.Context, sourceURL string, destPath string) error {
	cmd := exec.CommandContext(ctx, f.binary,
		"-f", f.format,
		"-o", destPath,
		"--no-playlist",
		"--quiet",
		sourceURL,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp error: %w, output: %s", err, string(output))
	}

	f.logger.Info("video downloaded",
		zap.String("url", sourceURL),
		zap.String("dest", destPath),
	)
	return nil
}
