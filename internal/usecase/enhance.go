package usecase

import (
	"context"
	"fmt"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"go.uber.org/zap"
)

// enhance produces the three style renders for every isolated product, in
// style order. Unisolated products are skipped. As with isolation, the
// analyzer response is not persisted; each render is a copy of the isolated
// image under a style-indexed path.
func (p *Pipeline) enhance(ctx context.Context, state *entity.RunState) {
	if state.Failed() {
		return
	}

	for _, product := range state.Products {
		if product.IsolatedImagePath == "" {
			continue
		}

		isolatedLocal := p.store.LocalPath(product.IsolatedImagePath)
		image, err := p.store.ReadImage(isolatedLocal)
		if err != nil {
			state.Fail(fmt.Sprintf("product enhancement failed: %v", err))
			return
		}

		enhanced := make([]string, 0, len(p.directives.Styles))
		for i, style := range p.directives.Styles {
			if _, err := p.analyzer.Analyze(ctx, image, p.directives.EnhancementFor(style)); err != nil {
				state.Fail(fmt.Sprintf("product enhancement failed: %v", err))
				return
			}

			enhancedPath := p.store.EnhancedPath(product.Name, i+1, product.Timestamp)
			if err := p.store.CopyImage(isolatedLocal, enhancedPath); err != nil {
				state.Fail(fmt.Sprintf("product enhancement failed: %v", err))
				return
			}
			enhanced = append(enhanced, p.store.PublicPath(enhancedPath))
		}
		product.EnhancedImagePaths = enhanced

		p.logger.Debug("product enhanced",
			zap.String("product", product.Name),
			zap.Int("renders", len(enhanced)),
		)
	}
}
