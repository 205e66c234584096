package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/prodimagery/product-imagery-service/internal/domain/port"
	"github.com/prodimagery/product-imagery-service/internal/infra/framestore"
	"github.com/prodimagery/product-imagery-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PipelineRunner is what the worker drives per message; satisfied by
// *Pipeline and by fakes in tests.
type PipelineRunner interface {
	Run(ctx context.Context, sourceURL string) (*PipelineResult, error)
}

// ProcessRunUseCase wraps one pipeline execution with run-record
// persistence, status publication, retry/DLQ handling and artifact
// publishing. One instance serves all workers.
type ProcessRunUseCase struct {
	pipeline  PipelineRunner
	repo      port.RunRepository
	store     *framestore.Store
	artifacts port.ArtifactStore
	report    port.ReportWriter
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	maxRetry  int
}

type ProcessRunConfig struct {
	MaxRetries int
}

func NewProcessRunUseCase(
	pipeline PipelineRunner,
	repo port.RunRepository,
	store *framestore.Store,
	artifacts port.ArtifactStore,
	report port.ReportWriter,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessRunConfig,
) *ProcessRunUseCase {
	return &ProcessRunUseCase{
		pipeline:  pipeline,
		repo:      repo,
		store:     store,
		artifacts: artifacts,
		report:    report,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		maxRetry:  cfg.MaxRetries,
	}
}

func (uc *ProcessRunUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessRunUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.RunRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("run.id", msg.RunID.String()),
		attribute.String("run.source_url", msg.SourceURL),
	)

	log := uc.logger.With(zap.String("run_id", msg.RunID.String()), zap.String("source_url", msg.SourceURL))

	run, err := uc.repo.FindByID(ctx, msg.RunID)
	if err != nil {
		run = entity.NewPipelineRun(msg.SourceURL, uc.maxRetry)
		run.ID = msg.RunID
		if err := uc.repo.Create(ctx, run); err != nil {
			log.Error("failed to create run record", zap.Error(err))
			return fmt.Errorf("create run: %w", err)
		}
	}

	if !run.CanRetry() {
		log.Warn("run exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, run, msg, rawMsg, "max retries exceeded")
		return nil
	}

	run.MarkProcessing()
	if err := uc.repo.Update(ctx, run); err != nil {
		log.Error("failed to update run to PROCESSING", zap.Error(err))
		return fmt.Errorf("update run: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	result, err := uc.pipeline.Run(ctx, run.SourceURL)
	if err != nil {
		log.Error("pipeline run failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, run, msg, rawMsg, err.Error(), log)
	}

	reportKey, err := uc.publishArtifacts(ctx, run, result, log)
	if err != nil {
		log.Error("artifact publishing failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, run, msg, rawMsg, "publish_artifacts: "+err.Error(), log)
	}

	run.MarkCompleted(result.VideoID, len(result.Frames), result.Products, reportKey)
	if err := uc.repo.Update(ctx, run); err != nil {
		log.Error("failed to update run to COMPLETED", zap.Error(err))
		return fmt.Errorf("update run completed: %w", err)
	}

	uc.publishStatus(ctx, run, log)

	metrics.RunsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	log.Info("run completed successfully",
		zap.String("video_id", result.VideoID),
		zap.Int("frame_count", len(result.Frames)),
		zap.Int("product_count", len(result.Products)),
		zap.String("report_key", reportKey),
	)

	return nil
}

// publishArtifacts writes the xlsx product report and mirrors it, together
// with every isolated and enhanced image, to object storage under the run id.
func (uc *ProcessRunUseCase) publishArtifacts(
	ctx context.Context,
	run *entity.PipelineRun,
	result *PipelineResult,
	log *zap.Logger,
) (string, error) {
	reportPath := filepath.Join(uc.store.Dir(), fmt.Sprintf("report_%s.xlsx", run.ID))
	if err := uc.report.WriteReport(ctx, result.Products, reportPath); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	reportKey := fmt.Sprintf("%s/report.xlsx", run.ID)
	if err := uc.uploadFile(ctx, reportKey, reportPath,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return "", err
	}

	for _, product := range result.Products {
		paths := []string{}
		if product.IsolatedImagePath != "" {
			paths = append(paths, product.IsolatedImagePath)
		}
		paths = append(paths, product.EnhancedImagePaths...)

		for _, publicPath := range paths {
			local := uc.store.LocalPath(publicPath)
			key := fmt.Sprintf("%s/%s", run.ID, filepath.Base(local))
			if err := uc.uploadFile(ctx, key, local, "image/jpeg"); err != nil {
				return "", err
			}
		}
	}

	log.Info("artifacts published", zap.String("report_key", reportKey))
	return reportKey, nil
}

func (uc *ProcessRunUseCase) uploadFile(ctx context.Context, objectKey, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact %s: %w", path, err)
	}

	if err := uc.artifacts.UploadArtifact(ctx, objectKey, f, info.Size(), contentType); err != nil {
		return fmt.Errorf("upload artifact %s: %w", objectKey, err)
	}
	return nil
}

func (uc *ProcessRunUseCase) handleRetryableFailure(
	ctx context.Context,
	run *entity.PipelineRun,
	msg entity.RunRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	run.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, run)

	if !run.CanRetry() {
		return uc.handlePermanentFailure(ctx, run, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(run.Attempt)).Inc()
	uc.publishStatus(ctx, run, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", run.Attempt, run.MaxAttempts, errMsg)
}

func (uc *ProcessRunUseCase) handlePermanentFailure(
	ctx context.Context,
	run *entity.PipelineRun,
	msg entity.RunRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	run.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, run)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, run, uc.logger)

	metrics.RunsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, run.ID.String(), run.SourceURL, errMsg)
	}

	return nil
}

func (uc *ProcessRunUseCase) publishStatus(ctx context.Context, run *entity.PipelineRun, log *zap.Logger) {
	statusMsg := entity.RunStatusMessage{
		RunID:        run.ID,
		Status:       run.Status,
		SourceURL:    run.SourceURL,
		VideoID:      run.VideoID,
		FrameCount:   run.FrameCount,
		ProductCount: run.ProductCount,
		ReportKey:    run.ReportKey,
		ErrorMessage: run.ErrorMessage,
		Attempt:      run.Attempt,
		MaxAttempts:  run.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
