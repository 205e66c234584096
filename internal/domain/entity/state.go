package entity

// RunState is the mutable state threaded through one pipeline invocation.
// It is owned exclusively by a single run; stages read and extend it in a
// fixed order and never share it across runs.
type RunState struct {
	SourceURL string
	VideoID   string
	VideoPath string
	Frames    []*FrameRecord
	Products  []*ProductRecord
	Err       string
}

// FrameRecord is one sampled frame. Created by the sampler; Detected is
// appended to by the detector only.
type FrameRecord struct {
	Index     int
	Timestamp float64
	ImagePath string
	Detected  []*ProductRecord
}

// ProductRecord is one accepted detection. Created by the detector, the
// image path fields are filled in by the isolation and enhancement stages.
type ProductRecord struct {
	Name               string   `json:"name"`
	Confidence         float64  `json:"confidence"`
	Description        string   `json:"description"`
	Timestamp          float64  `json:"timestamp"`
	FrameImagePath     string   `json:"frame_image_path"`
	IsolatedImagePath  string   `json:"isolated_image_path"`
	EnhancedImagePaths []string `json:"enhanced_image_paths"`
}

func NewRunState(sourceURL string) *RunState {
	return &RunState{
		SourceURL: sourceURL,
		Frames:    []*FrameRecord{},
		Products:  []*ProductRecord{},
	}
}

// Fail records the first stage failure. Later failures are ignored: once
// set, the error is never cleared and all remaining stages are no-ops.
func (s *RunState) Fail(msg string) {
	if s.Err == "" {
		s.Err = msg
	}
}

func (s *RunState) Failed() bool {
	return s.Err != ""
}
