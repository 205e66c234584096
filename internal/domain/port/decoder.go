package port

import "context"

// VideoDecoder opens a local video file for sequential frame reading.
type VideoDecoder interface {
	Open(ctx context.Context, videoPath string) (VideoStream, error)
}

// VideoStream yields decoded frames in presentation order. Next returns
// io.EOF once the stream is exhausted.
type VideoStream interface {
	FrameRate() float64
	FrameCount() int
	Next() ([]byte, error)
	Close() error
}
