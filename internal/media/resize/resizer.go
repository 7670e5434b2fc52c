package resize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"time"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func init() {
	// image.Decode only knows the stdlib formats; register webp so
	// uploaded webp originals can be resized and transcoded.
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
}

// Renderer produces an encoded derivative from an original on disk.
// Passing 0 for one dimension preserves the aspect ratio. The returned
// bytes contain pixels only: re-encoding drops EXIF and other
// non-pixel metadata.
type Renderer interface {
	Render(ctx context.Context, srcPath string, width, height int, ext string) ([]byte, error)
}

// ImageRenderer is the in-process implementation built on pure-Go
// codecs. Renders run under a timeout so a pathological image fails
// the request instead of hanging it.
type ImageRenderer struct {
	timeout time.Duration
}

func NewImageRenderer(timeout time.Duration) *ImageRenderer {
	return &ImageRenderer{timeout: timeout}
}

type renderResult struct {
	data []byte
	err  error
}

func (r *ImageRenderer) Render(ctx context.Context, srcPath string, width, height int, ext string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan renderResult, 1)
	go func() {
		data, err := render(srcPath, width, height, ext)
		done <- renderResult{data: data, err: err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		// The goroutine keeps running to completion but its result is
		// discarded; the request fails instead of hanging.
		return nil, fmt.Errorf("resize %s: %w", ext, ctx.Err())
	}
}

func render(srcPath string, width, height int, ext string) ([]byte, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open original: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode original: %w", err)
	}

	if width > 0 || height > 0 {
		img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	}

	return Encode(img, ext)
}

// Transcode re-encodes the image at srcPath into ext without resizing,
// used when an output-format override is configured at ingest.
func (r *ImageRenderer) Transcode(ctx context.Context, srcPath, ext string) ([]byte, error) {
	return r.Render(ctx, srcPath, 0, 0, ext)
}

// Encode serializes img into the format implied by ext (leading dot
// included). Animated gif originals flatten to their first frame when
// resized; that matches serving a still derivative of a moving image.
func Encode(img image.Image, ext string) ([]byte, error) {
	var buf bytes.Buffer
	switch ext {
	case ".png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case ".jpeg", ".jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case ".gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("encode gif: %w", err)
		}
	case ".webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	case ".bmp":
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode bmp: %w", err)
		}
	case ".tiff":
		if err := tiff.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("encode tiff: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", ext)
	}
	return buf.Bytes(), nil
}
