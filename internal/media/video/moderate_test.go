package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgvault/api/internal/media/nsfw"
)

type fakeProbe struct {
	info Info
	err  error
}

func (p fakeProbe) Probe(context.Context, string) (Info, error) {
	return p.info, p.err
}

type fakeExtractor struct {
	t         *testing.T
	dir       string
	frames    int
	calls     int
	lastNth   int
	lastMax   int
	extracted []string
}

func (e *fakeExtractor) Extract(_ context.Context, _ string, everyNth, maxFrames int) ([]string, error) {
	e.calls++
	e.lastNth = everyNth
	e.lastMax = maxFrames

	n := e.frames
	if maxFrames > 0 && n > maxFrames {
		n = maxFrames
	}
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := filepath.Join(e.dir, "frame-"+strconv.Itoa(i)+".jpg")
		require.NoError(e.t, os.WriteFile(p, []byte("jpg"), 0o644))
		paths = append(paths, p)
	}
	e.extracted = append(e.extracted, paths...)
	return paths, nil
}

type fakeClassifier struct {
	score float64
	err   error
	calls int
	seen  [][]string
}

func (c *fakeClassifier) Classify(_ context.Context, paths []string) (map[string]float64, error) {
	c.calls++
	c.seen = append(c.seen, paths)
	if c.err != nil {
		return nil, c.err
	}
	scores := make(map[string]float64, len(paths))
	for _, p := range paths {
		scores[p] = c.score
	}
	return scores, nil
}

func newTestModerator(t *testing.T, probe Probe, extractor FrameExtractor, classifier nsfw.Classifier, threshold float64) *Moderator {
	t.Helper()
	return NewModerator(probe, extractor, nsfw.NewModerator(classifier, threshold), 1.0, 10, zerolog.Nop())
}

func assertAllRemoved(t *testing.T, paths []string) {
	t.Helper()
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "transient frame %s should have been removed", p)
	}
}

func TestUnsafeWorstFrameWins(t *testing.T) {
	extractor := &fakeExtractor{t: t, dir: t.TempDir(), frames: 5}
	classifier := &fakeClassifier{score: 0.9}
	mod := newTestModerator(t, fakeProbe{info: Info{Duration: 5, FPS: 30}}, extractor, classifier, 0.5)

	unsafe, err := mod.Unsafe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.True(t, unsafe)
	assertAllRemoved(t, extractor.extracted)
}

func TestSafeBelowThreshold(t *testing.T) {
	extractor := &fakeExtractor{t: t, dir: t.TempDir(), frames: 5}
	classifier := &fakeClassifier{score: 0.1}
	mod := newTestModerator(t, fakeProbe{info: Info{Duration: 5, FPS: 30}}, extractor, classifier, 0.5)

	unsafe, err := mod.Unsafe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.False(t, unsafe)
	assertAllRemoved(t, extractor.extracted)
}

func TestFramesClassifiedInOneBatch(t *testing.T) {
	extractor := &fakeExtractor{t: t, dir: t.TempDir(), frames: 8}
	classifier := &fakeClassifier{score: 0.1}
	mod := newTestModerator(t, fakeProbe{info: Info{Duration: 8, FPS: 30}}, extractor, classifier, 0.5)

	_, err := mod.Unsafe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	require.Equal(t, 1, classifier.calls, "all sampled frames must go through a single batch call")
	assert.Len(t, classifier.seen[0], 8)
}

func TestCleanupOnClassifierFailure(t *testing.T) {
	extractor := &fakeExtractor{t: t, dir: t.TempDir(), frames: 4}
	classifier := &fakeClassifier{err: errors.New("model exploded")}
	mod := newTestModerator(t, fakeProbe{info: Info{Duration: 4, FPS: 30}}, extractor, classifier, 0.5)

	_, err := mod.Unsafe(context.Background(), "clip.mp4")
	require.Error(t, err)
	assertAllRemoved(t, extractor.extracted)
}

func TestIntervalWidensToCoverLongClips(t *testing.T) {
	extractor := &fakeExtractor{t: t, dir: t.TempDir(), frames: 10}
	classifier := &fakeClassifier{score: 0.1}
	// 60s at 30fps with a 10-frame cap: the 1s base interval widens to
	// 6s, i.e. every 180th frame.
	mod := newTestModerator(t, fakeProbe{info: Info{Duration: 60, FPS: 30}}, extractor, classifier, 0.5)

	_, err := mod.Unsafe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, 180, extractor.lastNth)
	assert.Equal(t, 10, extractor.lastMax)
}

func TestZeroFPSPassesWithoutSampling(t *testing.T) {
	extractor := &fakeExtractor{t: t, dir: t.TempDir(), frames: 5}
	classifier := &fakeClassifier{score: 0.9}
	mod := newTestModerator(t, fakeProbe{info: Info{}}, extractor, classifier, 0.5)

	unsafe, err := mod.Unsafe(context.Background(), "broken.mp4")
	require.NoError(t, err)
	assert.False(t, unsafe)
	assert.Zero(t, extractor.calls)
	assert.Zero(t, classifier.calls)
}

func TestDisabledThresholdSkipsEverything(t *testing.T) {
	extractor := &fakeExtractor{t: t, dir: t.TempDir(), frames: 5}
	classifier := &fakeClassifier{score: 0.9}
	mod := newTestModerator(t, fakeProbe{info: Info{Duration: 5, FPS: 30}}, extractor, classifier, 0)

	unsafe, err := mod.Unsafe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.False(t, unsafe)
	assert.Zero(t, extractor.calls)
	assert.Zero(t, classifier.calls)
}

func TestExceedsDuration(t *testing.T) {
	mod := newTestModerator(t, fakeProbe{info: Info{Duration: 90, FPS: 30}}, &fakeExtractor{t: t, dir: t.TempDir()}, &fakeClassifier{}, 0.5)
	assert.True(t, mod.ExceedsDuration(context.Background(), "long.mp4", 60))
	assert.False(t, mod.ExceedsDuration(context.Background(), "long.mp4", 120))
}

func TestProbeFailureFailsOpen(t *testing.T) {
	mod := newTestModerator(t, fakeProbe{err: errors.New("no such file")}, &fakeExtractor{t: t, dir: t.TempDir()}, &fakeClassifier{score: 0.9}, 0.5)

	assert.False(t, mod.ExceedsDuration(context.Background(), "missing.mp4", 60))

	unsafe, err := mod.Unsafe(context.Background(), "missing.mp4")
	require.NoError(t, err)
	assert.False(t, unsafe)
}

func TestParseRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.01)
	assert.Equal(t, 30.0, parseRate("30"))
	assert.Equal(t, 0.0, parseRate("0/0"))
	assert.Equal(t, 0.0, parseRate("garbage"))
}
