package port

import (
	"context"
	"io"
)

// ArtifactStore mirrors run artifacts (isolated/enhanced images, reports)
// to durable object storage after a successful run.
type ArtifactStore interface {
	UploadArtifact(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}
