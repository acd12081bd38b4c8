// Package thumbnail captures a still frame from an episode video to use as
// its thumbnail when the operator did not supply one.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"os/exec"

	"github.com/nfnt/resize"
)

const (
	Width  uint = 300
	Height uint = 400

	// CaptureAt is the offset, in seconds, of the captured frame.
	CaptureAt = "1"
)

// ErrUnavailable is returned by extractors that cannot capture frames.
var ErrUnavailable = errors.New("thumbnail extraction unavailable")

// Extractor turns a video file into JPEG thumbnail bytes.
type Extractor interface {
	Extract(ctx context.Context, videoPath string) ([]byte, error)
}

// FFmpegExtractor grabs one frame through the ffmpeg binary.
type FFmpegExtractor struct {
	Binary string
}

// NewFFmpegExtractor returns an extractor using binary, or a NoopExtractor
// when binary cannot be found on PATH.
func NewFFmpegExtractor(binary string) Extractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return NoopExtractor{}
	}
	return &FFmpegExtractor{Binary: path}
}

func (f *FFmpegExtractor) Extract(ctx context.Context, videoPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.Binary,
		"-hide_banner", "-loglevel", "error",
		"-ss", CaptureAt,
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png", "-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return Frame(stdout.Bytes())
}

// NoopExtractor never captures anything.
type NoopExtractor struct{}

func (NoopExtractor) Extract(context.Context, string) ([]byte, error) {
	return nil, ErrUnavailable
}

// Frame scales a decoded frame to the fixed thumbnail size and encodes it
// as JPEG.
func Frame(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	resized := resize.Resize(Width, Height, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
