package port

import (
	"context"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
)

// ReportWriter renders the detected product catalog of a run to a file.
type ReportWriter interface {
	WriteReport(ctx context.Context, products []*entity.ProductRecord, outputPath string) error
}
