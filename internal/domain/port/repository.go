package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
)

type RunRepository interface {
	Create(ctx context.Context, run *entity.PipelineRun) error
	Update(ctx context.Context, run *entity.PipelineRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PipelineRun, error)
}
