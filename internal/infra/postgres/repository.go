package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
)

type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Create(ctx context.Context, run *entity.PipelineRun) error {
	products, err := marshalProducts(run.Products)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pipeline_runs (
			id, source_url, video_id, status, frame_count, product_count,
			products, report_key, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err = r.pool.Exec(ctx, query,
		run.ID, run.SourceURL, run.VideoID, string(run.Status),
		run.FrameCount, run.ProductCount, products, run.ReportKey,
		run.Attempt, run.MaxAttempts, run.ErrorMessage,
		run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.PipelineRun) error {
	products, err := marshalProducts(run.Products)
	if err != nil {
		return err
	}

	query := `
		UPDATE pipeline_runs SET
			video_id=$2, status=$3, frame_count=$4, product_count=$5,
			products=$6, report_key=$7, attempt=$8, error_message=$9,
			updated_at=$10, completed_at=$11
		WHERE id=$1`

	_, err = r.pool.Exec(ctx, query,
		run.ID, run.VideoID, string(run.Status), run.FrameCount,
		run.ProductCount, products, run.ReportKey, run.Attempt,
		run.ErrorMessage, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PipelineRun, error) {
	query := `
		SELECT id, source_url, video_id, status, frame_count, product_count,
			products, report_key, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM pipeline_runs WHERE id=$1`

	run := &entity.PipelineRun{}
	var status string
	var products []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.SourceURL, &run.VideoID, &status,
		&run.FrameCount, &run.ProductCount, &products, &run.ReportKey,
		&run.Attempt, &run.MaxAttempts, &run.ErrorMessage,
		&run.CreatedAt, &run.UpdatedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find run by id: %w", err)
	}

	run.Status = entity.RunStatus(status)
	if len(products) > 0 {
		if err := json.Unmarshal(products, &run.Products); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
	}
	return run, nil
}

func marshalProducts(products []*entity.ProductRecord) ([]byte, error) {
	if products == nil {
		products = []*entity.ProductRecord{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("encode products: %w", err)
	}
	return data, nil
}
