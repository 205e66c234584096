package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"go.uber.org/zap"
)

type processVideoRequest struct {
	URL       string `json:"url"`
	UserEmail string `json:"user_email,omitempty"`
}

type processVideoResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type runResponse struct {
	RunID        string                  `json:"run_id"`
	SourceURL    string                  `json:"source_url"`
	VideoID      string                  `json:"video_id,omitempty"`
	Status       string                  `json:"status"`
	FrameCount   int                     `json:"frame_count"`
	ProductCount int                     `json:"product_count"`
	Products     []*entity.ProductRecord `json:"products"`
	ReportKey    string                  `json:"report_key,omitempty"`
	Error        string                  `json:"error,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

type videoInfoResponse struct {
	Title           string `json:"title"`
	Duration        string `json:"duration"`
	DurationSeconds int    `json:"duration_seconds"`
	Error           string `json:"error,omitempty"`
}

func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	var req processVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	run := entity.NewPipelineRun(req.URL, s.maxRetries)
	if err := s.repo.Create(r.Context(), run); err != nil {
		s.logger.Error("failed to create run record", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create run"})
		return
	}

	msg, _ := json.Marshal(entity.RunRequestMessage{
		RunID:     run.ID,
		SourceURL: req.URL,
		UserEmail: req.UserEmail,
	})
	if err := s.publisher.PublishRequest(r.Context(), msg); err != nil {
		s.logger.Error("failed to publish run request", zap.Error(err), zap.String("run_id", run.ID.String()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue run"})
		return
	}

	s.logger.Info("run accepted", zap.String("run_id", run.ID.String()), zap.String("url", req.URL))

	writeJSON(w, http.StatusAccepted, processVideoResponse{
		RunID:   run.ID.String(),
		Status:  string(run.Status),
		Message: "video processing run accepted",
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}

	run, err := s.repo.FindByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}

	products := run.Products
	if products == nil {
		products = []*entity.ProductRecord{}
	}

	writeJSON(w, http.StatusOK, runResponse{
		RunID:        run.ID.String(),
		SourceURL:    run.SourceURL,
		VideoID:      run.VideoID,
		Status:       string(run.Status),
		FrameCount:   run.FrameCount,
		ProductCount: run.ProductCount,
		Products:     products,
		ReportKey:    run.ReportKey,
		Error:        run.ErrorMessage,
		CreatedAt:    run.CreatedAt,
		CompletedAt:  run.CompletedAt,
	})
}

// handleVideoInfo mirrors the lenient metadata contract: lookup failures
// are reported inside a 200 response, not as HTTP errors.
func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("id")

	info, err := s.metadata.VideoInfo(r.Context(), videoID)
	if err != nil {
		s.logger.Warn("video metadata lookup failed", zap.String("video_id", videoID), zap.Error(err))
		writeJSON(w, http.StatusOK, videoInfoResponse{
			Title:    "YouTube Video",
			Duration: "Unknown",
			Error:    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, videoInfoResponse{
		Title:           info.Title,
		Duration:        info.Duration,
		DurationSeconds: info.DurationSeconds,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
