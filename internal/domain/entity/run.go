package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending    RunStatus = "PENDING"
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusFailed     RunStatus = "FAILED"
)

// PipelineRun is the persisted lifecycle record of one pipeline invocation.
type PipelineRun struct {
	ID           uuid.UUID
	SourceURL    string
	VideoID      string
	Status       RunStatus
	FrameCount   int
	ProductCount int
	Products     []*ProductRecord
	ReportKey    string
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewPipelineRun(sourceURL string, maxAttempts int) *PipelineRun {
	now := time.Now().UTC()
	return &PipelineRun{
		ID:          uuid.New(),
		SourceURL:   sourceURL,
		Status:      RunStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *PipelineRun) MarkProcessing() {
	r.Status = RunStatusProcessing
	r.Attempt++
	r.UpdatedAt = time.Now().UTC()
}

func (r *PipelineRun) MarkCompleted(videoID string, frameCount int, products []*ProductRecord, reportKey string) {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.VideoID = videoID
	r.FrameCount = frameCount
	r.ProductCount = len(products)
	r.Products = products
	r.ReportKey = reportKey
	r.UpdatedAt = now
	r.CompletedAt = &now
}

func (r *PipelineRun) MarkFailed(errMsg string) {
	r.Status = RunStatusFailed
	r.ErrorMessage = errMsg
	r.UpdatedAt = time.Now().UTC()
}

func (r *PipelineRun) CanRetry() bool {
	return r.Attempt < r.MaxAttempts
}
