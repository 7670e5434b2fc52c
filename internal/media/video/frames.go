package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"imgvault/api/internal/ids"
)

// FrameExtractor samples frames from a video into transient image
// files. Frame index i is sampled when i mod everyNth == 0. The caller
// owns the returned files and must remove them.
type FrameExtractor interface {
	Extract(ctx context.Context, path string, everyNth, maxFrames int) ([]string, error)
}

type FFmpegExtractor struct {
	binary string
	tmpDir string
}

func NewFFmpegExtractor(binary, tmpDir string) *FFmpegExtractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegExtractor{binary: binary, tmpDir: tmpDir}
}

func (e *FFmpegExtractor) Extract(ctx context.Context, path string, everyNth, maxFrames int) ([]string, error) {
	if everyNth < 1 {
		everyNth = 1
	}
	if err := os.MkdirAll(e.tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	prefix := "frame-" + ids.New() + "-"
	pattern := filepath.Join(e.tmpDir, prefix+"%05d.jpg")

	args := []string{
		"-v", "error",
		"-i", path,
		"-vf", "select=not(mod(n\\," + strconv.Itoa(everyNth) + "))",
		"-vsync", "vfr",
	}
	if maxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(maxFrames))
	}
	args = append(args, pattern)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg extract: %w: %s", err, out)
	}

	frames, err := filepath.Glob(filepath.Join(e.tmpDir, prefix+"*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("collect frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}
