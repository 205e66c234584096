package httpapi

import (
	"context"
	"net/http"

	"github.com/prodimagery/product-imagery-service/internal/domain/port"
	"github.com/prodimagery/product-imagery-service/internal/infra/youtube"
	"go.uber.org/zap"
)

// RequestPublisher enqueues run requests for the worker pool.
type RequestPublisher interface {
	PublishRequest(ctx context.Context, msg []byte) error
}

// MetadataLookup resolves video title and duration for the /video-info
// endpoint.
type MetadataLookup interface {
	VideoInfo(ctx context.Context, videoID string) (*youtube.VideoInfo, error)
}

// Server is the public HTTP API: run submission, run status, video
// metadata, and static serving of the frame store under the public mount.
type Server struct {
	repo        port.RunRepository
	publisher   RequestPublisher
	metadata    MetadataLookup
	outputDir   string
	publicMount string
	maxRetries  int
	logger      *zap.Logger
}

func NewServer(
	repo port.RunRepository,
	publisher RequestPublisher,
	metadata MetadataLookup,
	outputDir string,
	publicMount string,
	maxRetries int,
	logger *zap.Logger,
) *Server {
	return &Server{
		repo:        repo,
		publisher:   publisher,
		metadata:    metadata,
		outputDir:   outputDir,
		publicMount: publicMount,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /process-video", s.handleProcessVideo)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /video-info/{id}", s.handleVideoInfo)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	prefix := s.publicMount + "/"
	mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(s.outputDir))))

	return mux
}
