package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/prodimagery/product-imagery-service/internal/domain/port"
	"go.uber.org/zap"
)

// Decoder opens a video through ffmpeg as an MJPEG image2pipe stream and
// reads stream metadata with ffprobe.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(ctx context.Context, videoPath string) (port.VideoStream, error) {
	fps, frameCount, err := d.probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	d.logger.Debug("video stream opened",
		zap.String("path", videoPath),
		zap.Float64("fps", fps),
		zap.Int("frame_count", frameCount),
	)

	return &stream{
		cmd:        cmd,
		out:        stdout,
		reader:     bufio.NewReaderSize(stdout, 1<<20),
		fps:        fps,
		frameCount: frameCount,
	}, nil
}

func (d *Decoder) probe(ctx context.Context, videoPath string) (float64, int, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=r_frame_rate,nb_read_frames",
		"-of", "csv=p=0",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", err)
	}

	fields := strings.Split(strings.TrimSpace(string(output)), ",")
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("ffprobe: unexpected output %q", string(output))
	}

	fps, err := parseFrameRate(fields[0])
	if err != nil {
		return 0, 0, err
	}

	frameCount, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse frame count %q: %w", fields[1], err)
	}

	return fps, frameCount, nil
}

// parseFrameRate handles ffprobe's rational form ("30000/1001") as well as
// plain decimals.
func parseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("parse frame rate %q: invalid denominator", s)
		}
		return n / d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	return f, nil
}

type stream struct {
	cmd        *exec.Cmd
	out        io.ReadCloser
	reader     *bufio.Reader
	fps        float64
	frameCount int
}

func (s *stream) FrameRate() float64 { return s.fps }
func (s *stream) FrameCount() int    { return s.frameCount }

// Next scans the MJPEG stream for the next SOI/EOI-delimited JPEG image.
// Returns io.EOF when the pipe is exhausted.
func (s *stream) Next() ([]byte, error) {
	// Seek the SOI marker (0xFFD8).
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return nil, eofOr(err)
		}
		if b != 0xFF {
			continue
		}
		next, err := s.reader.ReadByte()
		if err != nil {
			return nil, eofOr(err)
		}
		if next == 0xD8 {
			break
		}
		if next == 0xFF {
			// A 0xFF fill byte run may end at the marker; rescan from
			// the second byte.
			_ = s.reader.UnreadByte()
		}
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})

	// Accumulate until the EOI marker (0xFFD9).
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated frame: %w", err)
		}
		buf.WriteByte(b)
		if b != 0xFF {
			continue
		}
		next, err := s.reader.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated frame: %w", err)
		}
		buf.WriteByte(next)
		if next == 0xD9 {
			return buf.Bytes(), nil
		}
	}
}

func (s *stream) Close() error {
	s.out.Close()
	// ffmpeg exits with an error once its stdout is closed early; the
	// stream is done either way.
	_ = s.cmd.Wait()
	return nil
}

func eofOr(err error) error {
	if err == io.EOF {
		return io.EOF
	}
	return fmt.Errorf("read stream: %w", err)
}
