package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/prodimagery/product-imagery-service/internal/infra/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	runs      map[uuid.UUID]*entity.PipelineRun
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{runs: map[uuid.UUID]*entity.PipelineRun{}}
}

func (r *stubRepo) Create(_ context.Context, run *entity.PipelineRun) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.runs[run.ID] = run
	return nil
}

func (r *stubRepo) Update(_ context.Context, run *entity.PipelineRun) error {
	r.runs[run.ID] = run
	return nil
}

func (r *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.PipelineRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return run, nil
}

type stubPublisher struct {
	published [][]byte
	err       error
}

func (p *stubPublisher) PublishRequest(_ context.Context, msg []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

type stubMetadata struct {
	info *youtube.VideoInfo
	err  error
}

func (m *stubMetadata) VideoInfo(_ context.Context, _ string) (*youtube.VideoInfo, error) {
	return m.info, m.err
}

type apiFixture struct {
	server    *Server
	repo      *stubRepo
	publisher *stubPublisher
	metadata  *stubMetadata
	outputDir string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		repo:      newStubRepo(),
		publisher: &stubPublisher{},
		metadata:  &stubMetadata{info: &youtube.VideoInfo{Title: "A Video", Duration: "04:13", DurationSeconds: 253}},
		outputDir: t.TempDir(),
	}
	f.server = NewServer(f.repo, f.publisher, f.metadata, f.outputDir, "/output", 3, zap.NewNop())
	return f
}

func TestProcessVideoAccepted(t *testing.T) {
	fx := newAPIFixture(t)

	body := `{"url": "https://youtube.com/watch?v=abc123", "user_email": "user@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/process-video", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)

	runID, err := uuid.Parse(resp.RunID)
	require.NoError(t, err)
	_, err = fx.repo.FindByID(context.Background(), runID)
	require.NoError(t, err)

	require.Len(t, fx.publisher.published, 1)
	var msg entity.RunRequestMessage
	require.NoError(t, json.Unmarshal(fx.publisher.published[0], &msg))
	assert.Equal(t, runID, msg.RunID)
	assert.Equal(t, "https://youtube.com/watch?v=abc123", msg.SourceURL)
	assert.Equal(t, "user@example.com", msg.UserEmail)
}

func TestProcessVideoValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{"user_email": "a@b.c"}`},
		{"empty url", `{"url": ""}`},
		{"invalid json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newAPIFixture(t)
			req := httptest.NewRequest(http.MethodPost, "/process-video", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			fx.server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, fx.publisher.published)
		})
	}
}

func TestProcessVideoPublishFailure(t *testing.T) {
	fx := newAPIFixture(t)
	fx.publisher.err = errors.New("broker down")

	req := httptest.NewRequest(http.MethodPost, "/process-video",
		bytes.NewBufferString(`{"url": "https://youtube.com/watch?v=abc"}`))
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRun(t *testing.T) {
	fx := newAPIFixture(t)

	run := entity.NewPipelineRun("https://youtube.com/watch?v=abc123", 3)
	run.MarkCompleted("abc123", 5, []*entity.ProductRecord{{Name: "Mug", Confidence: 0.9}}, run.ID.String()+"/report.xlsx")
	require.NoError(t, fx.repo.Create(context.Background(), run))

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID.String(), nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RunID        string                  `json:"run_id"`
		Status       string                  `json:"status"`
		VideoID      string                  `json:"video_id"`
		FrameCount   int                     `json:"frame_count"`
		ProductCount int                     `json:"product_count"`
		Products     []*entity.ProductRecord `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, run.ID.String(), resp.RunID)
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.Equal(t, "abc123", resp.VideoID)
	assert.Equal(t, 5, resp.FrameCount)
	assert.Equal(t, 1, resp.ProductCount)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Mug", resp.Products[0].Name)
}

func TestGetRunProductsNeverNull(t *testing.T) {
	fx := newAPIFixture(t)

	run := entity.NewPipelineRun("https://youtube.com/watch?v=abc123", 3)
	require.NoError(t, fx.repo.Create(context.Background(), run))

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID.String(), nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"products":[]`)
}

func TestGetRunErrors(t *testing.T) {
	fx := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/runs/"+uuid.NewString(), nil)
	rec = httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVideoInfo(t *testing.T) {
	fx := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/video-info/abc123", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp videoInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "A Video", resp.Title)
	assert.Equal(t, "04:13", resp.Duration)
	assert.Equal(t, 253, resp.DurationSeconds)
}

func TestVideoInfoLookupFailureStaysOK(t *testing.T) {
	fx := newAPIFixture(t)
	fx.metadata.info = nil
	fx.metadata.err = errors.New("quota exceeded")

	req := httptest.NewRequest(http.MethodGet, "/video-info/abc123", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp videoInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "YouTube Video", resp.Title)
	assert.Equal(t, "Unknown", resp.Duration)
	assert.Contains(t, resp.Error, "quota exceeded")
}

func TestStaticArtifactServing(t *testing.T) {
	fx := newAPIFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fx.outputDir, "frame_abc_0.jpg"), []byte("jpeg-bytes"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/output/frame_abc_0.jpg", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
}

func TestHealthz(t *testing.T) {
	fx := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
