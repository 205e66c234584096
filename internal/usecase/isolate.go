package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"go.uber.org/zap"
)

// isolate correlates each product back to its originating frame by nearest
// timestamp: the first frame in ascending order within the 1 s tolerance
// wins. Products with no matching frame stay unisolated, which is not an
// error.
//
// TODO: persist the model's segmentation output instead of copying the
// frame image once the analyzer returns image data for isolation directives.
func (p *Pipeline) isolate(ctx context.Context, state *entity.RunState) {
	if state.Failed() {
		return
	}

	for _, product := range state.Products {
		var frame *entity.FrameRecord
		for _, f := range state.Frames {
			if math.Abs(f.Timestamp-product.Timestamp) < isolationToleranceSeconds {
				frame = f
				break
			}
		}
		if frame == nil {
			p.logger.Warn("no frame within tolerance, leaving product unisolated",
				zap.String("product", product.Name),
				zap.Float64("timestamp", product.Timestamp),
			)
			continue
		}

		image, err := p.store.ReadImage(frame.ImagePath)
		if err != nil {
			state.Fail(fmt.Sprintf("product isolation failed: %v", err))
			return
		}

		// Response content is advisory only; the frame copy stands in for
		// real segmentation output.
		if _, err := p.analyzer.Analyze(ctx, image, p.directives.IsolationFor(product.Name)); err != nil {
			state.Fail(fmt.Sprintf("product isolation failed: %v", err))
			return
		}

		isolatedPath := p.store.IsolatedPath(product.Name, product.Timestamp)
		if err := p.store.CopyImage(frame.ImagePath, isolatedPath); err != nil {
			state.Fail(fmt.Sprintf("product isolation failed: %v", err))
			return
		}

		product.FrameImagePath = p.store.PublicPath(frame.ImagePath)
		product.IsolatedImagePath = p.store.PublicPath(isolatedPath)
	}
}
