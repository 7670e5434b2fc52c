package video

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog"

	"imgvault/api/internal/media/nsfw"
)

// Moderator screens uploaded videos: a duration ceiling enforced
// before any classification work, then sampled-frame nudity moderation
// through a single batch classifier call.
type Moderator struct {
	probe     Probe
	extractor FrameExtractor
	mod       *nsfw.Moderator
	interval  float64 // base sampling interval in seconds
	maxFrames int
	log       zerolog.Logger
}

func NewModerator(probe Probe, extractor FrameExtractor, mod *nsfw.Moderator, interval float64, maxFrames int, log zerolog.Logger) *Moderator {
	return &Moderator{
		probe:     probe,
		extractor: extractor,
		mod:       mod,
		interval:  interval,
		maxFrames: maxFrames,
		log:       log,
	}
}

// ExceedsDuration reports whether the video at path plays longer than
// max seconds. A video whose frame rate cannot be determined reports
// duration zero and passes; that fail-open stance is logged so the
// bypass is at least visible to operators.
func (m *Moderator) ExceedsDuration(ctx context.Context, path string, max float64) bool {
	info := m.probeOpen(ctx, path)
	return info.Duration > max
}

// Unsafe reports whether any sampled frame scores at or above the
// nudity threshold. Every transient frame file is removed before
// returning, on every exit path including classifier failure.
func (m *Moderator) Unsafe(ctx context.Context, path string) (bool, error) {
	if !m.mod.Enabled() {
		return false, nil
	}

	info := m.probeOpen(ctx, path)
	if info.FPS <= 0 {
		// No decodable frames means an empty sample set.
		return false, nil
	}

	interval := m.interval
	if m.maxFrames > 0 && info.Duration > 0 {
		// Widen the interval so the samples spread across the whole
		// clip instead of clustering at the start.
		if spread := info.Duration / float64(m.maxFrames); spread > interval {
			interval = spread
		}
	}

	everyNth := int(math.Round(info.FPS * interval))
	if everyNth < 1 {
		everyNth = 1
	}

	frames, err := m.extractor.Extract(ctx, path, everyNth, m.maxFrames)
	defer removeAll(frames)
	if err != nil {
		return false, fmt.Errorf("sample frames: %w", err)
	}
	if len(frames) == 0 {
		return false, nil
	}

	return m.mod.CheckBatch(ctx, frames)
}

func (m *Moderator) probeOpen(ctx context.Context, path string) Info {
	info, err := m.probe.Probe(ctx, path)
	if err != nil {
		m.log.Warn().Err(err).Str("path", path).Msg("video probe failed, treating as zero duration")
		return Info{}
	}
	if info.FPS <= 0 {
		m.log.Warn().Str("path", path).Msg("video frame rate unreadable, duration and moderation checks pass vacuously")
	}
	return info
}

// removeAll deletes transient frame files; a file that is already gone
// is not an error.
func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
