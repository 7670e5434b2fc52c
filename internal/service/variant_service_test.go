package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgvault/api/internal/apperr"
	"imgvault/api/internal/media/resize"
	"imgvault/api/internal/storage"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newVariantFixture(t *testing.T, validSizes []int) (*VariantService, *storage.AssetStore, string) {
	t.Helper()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	store, err := storage.New(filepath.Join(t.TempDir(), "images"), cacheDir)
	require.NoError(t, err)

	renderer := resize.NewImageRenderer(0)
	return NewVariantService(store, renderer, validSizes, zerolog.Nop()), store, cacheDir
}

func TestFetchOriginalWhenNoSizeRequested(t *testing.T) {
	svc, store, _ := newVariantFixture(t, nil)
	orig, err := store.Put("abc.png", bytes.NewReader(testPNG(t, 8, 8)))
	require.NoError(t, err)

	path, err := svc.Fetch(context.Background(), "abc.png", "", "")
	require.NoError(t, err)
	assert.Equal(t, orig, path)
}

func TestFetchGeneratesDerivativeOnce(t *testing.T) {
	svc, store, cacheDir := newVariantFixture(t, []int{4, 8})
	_, err := store.Put("abc.png", bytes.NewReader(testPNG(t, 8, 8)))
	require.NoError(t, err)

	first, err := svc.Fetch(context.Background(), "abc.png", "4", "4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "abc_4x4.png"), first)

	firstData, err := os.ReadFile(first)
	require.NoError(t, err)

	// Repeated calls are idempotent and byte-identical.
	second, err := svc.Fetch(context.Background(), "abc.png", "4", "4")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	secondData, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, firstData, secondData)
}

func TestFetchDistinctSizesDistinctFiles(t *testing.T) {
	svc, store, _ := newVariantFixture(t, []int{4, 8})
	_, err := store.Put("abc.png", bytes.NewReader(testPNG(t, 8, 8)))
	require.NoError(t, err)

	a, err := svc.Fetch(context.Background(), "abc.png", "4", "")
	require.NoError(t, err)
	b, err := svc.Fetch(context.Background(), "abc.png", "", "4")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFetchInvalidSizeGeneratesNothing(t *testing.T) {
	svc, store, cacheDir := newVariantFixture(t, []int{100, 200})
	_, err := store.Put("abc.png", bytes.NewReader(testPNG(t, 8, 8)))
	require.NoError(t, err)

	_, err = svc.Fetch(context.Background(), "abc.png", "300", "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalid, apperr.Code(err))
	assert.Contains(t, apperr.Message(err), "100")
	assert.Contains(t, apperr.Message(err), "200")

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a rejected size must not generate a file")
}

func TestFetchMissingOriginal(t *testing.T) {
	svc, _, _ := newVariantFixture(t, nil)

	_, err := svc.Fetch(context.Background(), "ghost.png", "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.Code(err))
}

func TestFetchTraversalRejected(t *testing.T) {
	svc, _, _ := newVariantFixture(t, nil)

	_, err := svc.Fetch(context.Background(), "../../etc/passwd", "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTraversal, apperr.Code(err))
}

func TestVideoOriginalServedAsIs(t *testing.T) {
	svc, store, cacheDir := newVariantFixture(t, []int{100})
	orig, err := store.Put("clip.mp4", bytes.NewReader([]byte("not really a video")))
	require.NoError(t, err)

	path, err := svc.Fetch(context.Background(), "clip.mp4", "100", "")
	require.NoError(t, err)
	assert.Equal(t, orig, path)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteReportsCascadeCount(t *testing.T) {
	svc, store, _ := newVariantFixture(t, []int{4, 8})
	_, err := store.Put("abc.png", bytes.NewReader(testPNG(t, 8, 8)))
	require.NoError(t, err)

	_, err = svc.Fetch(context.Background(), "abc.png", "4", "")
	require.NoError(t, err)
	_, err = svc.Fetch(context.Background(), "abc.png", "8", "8")
	require.NoError(t, err)

	removed, err := svc.Delete(context.Background(), "abc.png")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = svc.Delete(context.Background(), "abc.png")
	assert.Equal(t, apperr.CodeNotFound, apperr.Code(err))
}
