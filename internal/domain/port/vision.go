package port

import "context"

// VisionAnalyzer sends one image plus a directive to the vision-analysis
// collaborator and returns its raw text response. Interpretation of the
// response is the caller's concern.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, image []byte, directive string) (string, error)
}
