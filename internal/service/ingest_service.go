package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"imgvault/api/internal/apperr"
	"imgvault/api/internal/config"
	"imgvault/api/internal/ids"
	"imgvault/api/internal/media/nsfw"
	"imgvault/api/internal/media/resize"
	"imgvault/api/internal/media/sniffer"
	"imgvault/api/internal/media/svg"
	"imgvault/api/internal/media/video"
	"imgvault/api/internal/storage"
)

// IngestInput carries exactly one upload source: a multipart file or a
// remote URL to fetch.
type IngestInput struct {
	File     multipart.File
	Filename string // declared filename, used for the svg special case
	URL      string
}

type IngestResult struct {
	Filename string
}

// IngestService is the upload pipeline: spool, classify, enforce video
// policy, moderate, then hand the canonical copy to the asset store.
type IngestService struct {
	cfg      *config.AppConfig
	store    *storage.AssetStore
	imageMod *nsfw.Moderator
	videoMod *video.Moderator
	renderer *resize.ImageRenderer
	fetcher  *http.Client
	log      zerolog.Logger
}

func NewIngestService(cfg *config.AppConfig, store *storage.AssetStore, imageMod *nsfw.Moderator, videoMod *video.Moderator, renderer *resize.ImageRenderer, log zerolog.Logger) *IngestService {
	return &IngestService{
		cfg:      cfg,
		store:    store,
		imageMod: imageMod,
		videoMod: videoMod,
		renderer: renderer,
		fetcher:  &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (IngestResult, error) {
	if (input.File == nil) == (input.URL == "") {
		return IngestResult{}, apperr.Invalid("file is missing")
	}

	tmpPath, declaredName, err := s.spool(ctx, input)
	if err != nil {
		return IngestResult{}, err
	}
	// The spooled upload is transient; nothing below may leak it.
	defer os.Remove(tmpPath)

	detected, err := sniffer.DetectNamed(tmpPath, declaredName)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return IngestResult{}, apperr.Invalid("unsupported file type")
		}
		return IngestResult{}, apperr.Internal("failed to inspect upload", err)
	}

	switch detected.Kind {
	case sniffer.KindVector:
		return s.storeVector(tmpPath)
	case sniffer.KindVideo:
		return s.storeVideo(ctx, tmpPath, detected)
	default:
		return s.storeImage(ctx, tmpPath, detected)
	}
}

func (s *IngestService) storeVector(tmpPath string) (IngestResult, error) {
	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return IngestResult{}, apperr.Internal("failed to read upload", err)
	}
	clean, err := svg.Sanitize(raw)
	if err != nil {
		return IngestResult{}, apperr.Invalid("invalid svg document")
	}
	return s.persist(bytes.NewReader(clean), ".svg")
}

func (s *IngestService) storeVideo(ctx context.Context, tmpPath string, detected sniffer.Result) (IngestResult, error) {
	if !s.cfg.Video.Allow {
		return IngestResult{}, apperr.Policy("video uploads are not allowed")
	}

	// The duration ceiling runs before moderation so a clip that will
	// be rejected anyway never costs classification work.
	if s.videoMod.ExceedsDuration(ctx, tmpPath, s.cfg.Video.MaxDuration) {
		return IngestResult{}, apperr.Policy("video exceeds maximum duration of %g seconds", s.cfg.Video.MaxDuration)
	}

	unsafe, err := s.videoMod.Unsafe(ctx, tmpPath)
	if err != nil {
		return IngestResult{}, apperr.Internal("video moderation failed", err)
	}
	if unsafe {
		return IngestResult{}, apperr.Policy("nudity not allowed")
	}

	return s.persistFile(tmpPath, "."+string(detected.Type))
}

func (s *IngestService) storeImage(ctx context.Context, tmpPath string, detected sniffer.Result) (IngestResult, error) {
	unsafe, err := s.imageMod.CheckImage(ctx, tmpPath)
	if err != nil {
		return IngestResult{}, apperr.Internal("image moderation failed", err)
	}
	if unsafe {
		return IngestResult{}, apperr.Policy("nudity not allowed")
	}

	ext := "." + string(detected.Type)
	if override := normalizeExt(s.cfg.Storage.OutputFormat); override != "" && override != ext {
		data, err := s.renderer.Transcode(ctx, tmpPath, override)
		if err != nil {
			return IngestResult{}, apperr.Internal("failed to convert upload", err)
		}
		return s.persist(bytes.NewReader(data), override)
	}

	return s.persistFile(tmpPath, ext)
}

func (s *IngestService) persistFile(path, ext string) (IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return IngestResult{}, apperr.Internal("failed to read upload", err)
	}
	defer f.Close()
	return s.persist(f, ext)
}

func (s *IngestService) persist(r io.Reader, ext string) (IngestResult, error) {
	filename := ids.New() + ext
	if _, err := s.store.Put(filename, r); err != nil {
		return IngestResult{}, apperr.Internal("failed to store upload", err)
	}
	s.log.Info().Str("filename", filename).Msg("asset stored")
	return IngestResult{Filename: filename}, nil
}

// spool writes the upload source to a transient file under the tmp
// dir, enforcing the size cap for both multipart and remote sources.
func (s *IngestService) spool(ctx context.Context, input IngestInput) (string, string, error) {
	if err := os.MkdirAll(s.cfg.Storage.TmpDir, 0o755); err != nil {
		return "", "", apperr.Internal("failed to prepare tmp dir", err)
	}

	tmp, err := os.CreateTemp(s.cfg.Storage.TmpDir, "upload-*")
	if err != nil {
		return "", "", apperr.Internal("failed to spool upload", err)
	}

	var src io.Reader
	declaredName := input.Filename
	var body io.Closer

	if input.File != nil {
		src = input.File
	} else {
		resp, err := s.fetch(ctx, input.URL)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", "", err
		}
		src = resp.Body
		body = resp.Body
		declaredName = input.URL
	}
	if body != nil {
		defer body.Close()
	}

	maxBytes := s.cfg.Storage.MaxUploadMB * 1024 * 1024
	written, err := io.Copy(tmp, io.LimitReader(src, maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", "", apperr.Internal("failed to spool upload", err)
	}
	if maxBytes > 0 && written > maxBytes {
		os.Remove(tmp.Name())
		return "", "", apperr.Invalid("file exceeds maximum size of %d MB", s.cfg.Storage.MaxUploadMB)
	}
	if written == 0 {
		os.Remove(tmp.Name())
		return "", "", apperr.Invalid("file is missing")
	}

	return tmp.Name(), declaredName, nil
}

func (s *IngestService) fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Invalid("invalid url")
	}
	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, apperr.Invalid("failed to fetch url")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperr.Invalid("failed to fetch url: status %d", resp.StatusCode)
	}
	return resp, nil
}

func normalizeExt(format string) string {
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		return ""
	}
	if !strings.HasPrefix(format, ".") {
		format = "." + format
	}
	if format == ".jpg" {
		format = ".jpeg"
	}
	return format
}
