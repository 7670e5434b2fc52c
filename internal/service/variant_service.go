package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"imgvault/api/internal/apperr"
	"imgvault/api/internal/media/resize"
	"imgvault/api/internal/media/variant"
	"imgvault/api/internal/storage"
)

// VariantService is the lazy derivative cache: a fetch either returns
// an already rendered derivative or renders and persists one. A
// derivative, once written, is never revalidated; originals are
// immutable so the id-keyed filename stays correct forever.
type VariantService struct {
	store      *storage.AssetStore
	renderer   resize.Renderer
	validSizes []int
	group      singleflight.Group
	log        zerolog.Logger
}

func NewVariantService(store *storage.AssetStore, renderer resize.Renderer, validSizes []int, log zerolog.Logger) *VariantService {
	return &VariantService{
		store:      store,
		renderer:   renderer,
		validSizes: validSizes,
		log:        log,
	}
}

// Fetch resolves filename plus optional size strings to a servable
// path. Both sizes empty serves the original directly; video originals
// are never resized and always serve as-is.
func (s *VariantService) Fetch(ctx context.Context, filename, rawW, rawH string) (string, error) {
	origPath, err := s.store.Resolve(filename)
	if err != nil {
		return "", err
	}

	width, err := variant.ParseSize(rawW, s.validSizes)
	if err != nil {
		return "", err
	}
	height, err := variant.ParseSize(rawH, s.validSizes)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(filename)
	if (width == 0 && height == 0) || isVideoExt(ext) {
		return origPath, nil
	}

	key := variant.Key{
		ID:     strings.TrimSuffix(filename, ext),
		Width:  width,
		Height: height,
		Ext:    ext,
	}
	name := key.Filename()

	// Cache hit: an existing derivative is eternally valid.
	if path, err := s.store.ResolveDerivative(name); err == nil {
		return path, nil
	}

	// Miss: collapse concurrent identical requests into one render so
	// a herd of first-fetchers does the work once.
	path, err, _ := s.group.Do(name, func() (any, error) {
		if path, err := s.store.ResolveDerivative(name); err == nil {
			return path, nil
		}

		data, err := s.renderer.Render(ctx, origPath, width, height, ext)
		if err != nil {
			return "", apperr.Internal("failed to generate derivative", fmt.Errorf("render %s: %w", name, err))
		}

		path, err := s.store.PutDerivative(name, data)
		if err != nil {
			return "", apperr.Internal("failed to store derivative", err)
		}

		s.log.Debug().
			Str("derivative", name).
			Int("width", width).
			Int("height", height).
			Msg("derivative generated")
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

// Delete removes the original and cascades to every derivative carrying
// its id, returning the derivative count for the response body.
func (s *VariantService) Delete(ctx context.Context, filename string) (int, error) {
	removed, err := s.store.Delete(filename)
	if err != nil {
		return 0, err
	}
	s.log.Info().
		Str("filename", filename).
		Int("cached_removed", removed).
		Msg("asset deleted")
	return removed, nil
}

func isVideoExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp4", ".webm":
		return true
	}
	return false
}
