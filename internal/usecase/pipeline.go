package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/prodimagery/product-imagery-service/internal/domain/port"
	"github.com/prodimagery/product-imagery-service/internal/infra/framestore"
	"github.com/prodimagery/product-imagery-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Sampling interval and correlation tolerance are design constants of the
// pipeline, not configuration.
const (
	sampleIntervalSeconds     = 2.0
	confidenceThreshold       = 0.5
	isolationToleranceSeconds = 1.0
)

// Pipeline runs the five-stage product imagery pipeline over one video:
// acquisition, sampling, detection, isolation, enhancement. One mutable
// RunState is threaded through the stages in that fixed order; the first
// stage failure is recorded on the state and every later stage is a no-op.
type Pipeline struct {
	fetcher    port.VideoFetcher
	decoder    port.VideoDecoder
	analyzer   port.VisionAnalyzer
	store      *framestore.Store
	directives Directives
	logger     *zap.Logger
}

// PipelineResult is the all-or-nothing outcome of a run. On failure no
// partial products are surfaced, though intermediate artifacts stay in the
// frame store.
type PipelineResult struct {
	Products []*entity.ProductRecord
	Frames   []*entity.FrameRecord
	VideoID  string
	Message  string
}

func NewPipeline(
	fetcher port.VideoFetcher,
	decoder port.VideoDecoder,
	analyzer port.VisionAnalyzer,
	store *framestore.Store,
	directives Directives,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		decoder:    decoder,
		analyzer:   analyzer,
		store:      store,
		directives: directives,
		logger:     logger,
	}
}

func (p *Pipeline) Run(ctx context.Context, sourceURL string) (*PipelineResult, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "Pipeline.Run")
	defer span.End()

	state := entity.NewRunState(sourceURL)

	stages := []struct {
		name string
		fn   func(context.Context, *entity.RunState)
	}{
		{"acquire", p.acquire},
		{"sample", p.sample},
		{"detect", p.detect},
		{"isolate", p.isolate},
		{"enhance", p.enhance},
	}

	for _, stage := range stages {
		// Stages after a failure never run; they record no span or duration.
		if state.Failed() {
			break
		}
		start := time.Now()
		stageCtx, stageSpan := tracer.Start(ctx, stage.name)
		stage.fn(stageCtx, state)
		stageSpan.End()
		metrics.StageDuration.WithLabelValues(stage.name).Observe(time.Since(start).Seconds())
	}

	if state.Failed() {
		return nil, errors.New(state.Err)
	}

	p.logger.Info("pipeline run completed",
		zap.String("video_id", state.VideoID),
		zap.Int("frames", len(state.Frames)),
		zap.Int("products", len(state.Products)),
	)

	return &PipelineResult{
		Products: state.Products,
		Frames:   state.Frames,
		VideoID:  state.VideoID,
		Message:  fmt.Sprintf("successfully processed video and found %d products", len(state.Products)),
	}, nil
}
