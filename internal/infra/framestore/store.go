package framestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store is the durable filesystem area holding the downloaded video and all
// derived images for a run. Every artifact lives at a deterministic path
// keyed by video id, frame index, product name or style index, so reruns
// over the same video reuse what is already on disk.
type Store struct {
	dir   string
	mount string
}

// New creates the output directory if needed. mount is the public path root
// the HTTP layer serves the directory under (e.g. "/output").
func New(dir, mount string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame store dir: %w", err)
	}
	return &Store{dir: dir, mount: strings.TrimSuffix(mount, "/")}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) VideoPath(videoID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("video_%s.mp4", videoID))
}

func (s *Store) FramePath(videoID string, frameIndex int) string {
	return filepath.Join(s.dir, fmt.Sprintf("frame_%s_%d.jpg", videoID, frameIndex))
}

func (s *Store) IsolatedPath(productName string, timestamp float64) string {
	return filepath.Join(s.dir, fmt.Sprintf("segmented_%s_%d.jpg", sanitizeName(productName), int(timestamp)))
}

func (s *Store) EnhancedPath(productName string, styleIndex int, timestamp float64) string {
	return filepath.Join(s.dir, fmt.Sprintf("enhanced_%s_%d_%d.jpg", sanitizeName(productName), styleIndex, int(timestamp)))
}

// PublicPath maps a local artifact path to the path it is served under.
func (s *Store) PublicPath(localPath string) string {
	return s.mount + "/" + filepath.Base(localPath)
}

// LocalPath is the inverse of PublicPath.
func (s *Store) LocalPath(publicPath string) string {
	return filepath.Join(s.dir, strings.TrimPrefix(publicPath, s.mount+"/"))
}

func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *Store) SaveImage(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

func (s *Store) ReadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

func (s *Store) CopyImage(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source image: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create image copy: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	return nil
}

// Product names go straight into filenames; only spaces are rewritten.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
