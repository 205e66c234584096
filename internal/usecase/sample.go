package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/prodimagery/product-imagery-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// sample walks the decoded video stream and persists every stride-th frame
// to the frame store. The stride is round(fps * 2s), never below 1, so the
// produced frame sequence is strictly ascending by index and timestamp;
// isolation depends on that ordering.
func (p *Pipeline) sample(ctx context.Context, state *entity.RunState) {
	if state.Failed() {
		return
	}

	stream, err := p.decoder.Open(ctx, state.VideoPath)
	if err != nil {
		state.Fail(fmt.Sprintf("frame sampling failed: %v", err))
		return
	}
	defer stream.Close()

	fps := stream.FrameRate()
	if fps <= 0 {
		state.Fail(fmt.Sprintf("frame sampling failed: invalid frame rate %v", fps))
		return
	}

	stride := int(math.Round(fps * sampleIntervalSeconds))
	if stride < 1 {
		stride = 1
	}

	for index := 0; ; index++ {
		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			state.Fail(fmt.Sprintf("frame sampling failed: %v", err))
			return
		}

		if index%stride != 0 {
			continue
		}

		framePath := p.store.FramePath(state.VideoID, index)
		if err := p.store.SaveImage(framePath, frame); err != nil {
			state.Fail(fmt.Sprintf("frame sampling failed: %v", err))
			return
		}

		state.Frames = append(state.Frames, &entity.FrameRecord{
			Index:     index,
			Timestamp: float64(index) / fps,
			ImagePath: framePath,
			Detected:  []*entity.ProductRecord{},
		})
	}

	metrics.FramesSampledTotal.Add(float64(len(state.Frames)))

	p.logger.Info("frames sampled",
		zap.String("video_id", state.VideoID),
		zap.Int("sampled", len(state.Frames)),
		zap.Int("total_frames", stream.FrameCount()),
		zap.Float64("fps", fps),
		zap.Int("stride", stride),
	)
}
